package shared

type ServerConfig struct {
	Safecall SafecallConfig `mapstructure:"safecall" validate:"required"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Location LocationConfig `mapstructure:"location"`
}

type SafecallConfig struct {
	PrivateKeyPem  string         `mapstructure:"privateKeyPem" validate:"required"`
	OwnerName      string         `mapstructure:"ownerName"`
	AppUrl         string         `mapstructure:"appUrl"`
	AllowedOrigins []string       `mapstructure:"allowedOrigins"`
	Cron           CronConfig     `mapstructure:"cron" validate:"required"`
	Listener       ListenerConfig `mapstructure:"listener" validate:"required"`
	Work           WorkConfig     `mapstructure:"work"`
}

type CronConfig struct {
	TimeZone      string `mapstructure:"timeZone" validate:"required"`
	StatsSchedule string `mapstructure:"statsSchedule"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

type WorkConfig struct {
	RetryDelaySeconds int `mapstructure:"retryDelaySeconds" validate:"min=0"`
}

type TwilioConfig struct {
	AccountSid          string   `mapstructure:"accountSid"`
	AuthToken           string   `mapstructure:"authToken" validate:"required_with=AccountSid"`
	MessagingServiceSid string   `mapstructure:"messagingServiceSid" validate:"required_with=AccountSid"`
	Recipients          []string `mapstructure:"recipients" validate:"dive,required"`
}

// LocationConfig is a fallback fix for devices that can't report their own
type LocationConfig struct {
	Latitude  *float64 `mapstructure:"latitude" validate:"required_with=Longitude,omitempty,min=-90,max=90"`
	Longitude *float64 `mapstructure:"longitude" validate:"required_with=Latitude,omitempty,min=-180,max=180"`
}
