package twilio

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Daskott/safecall/colors"
	"github.com/Daskott/safecall/shared"
	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioUtil "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const StatusCallbackPath = "/webhook/sms/status"

type ClientWrapper struct {
	client           *twilio.RestClient
	config           shared.TwilioConfig
	requestValidator twilioUtil.RequestValidator
	webhookBaseURL   string
	logg             *zap.SugaredLogger

	// dryRun only logs messages, used when no credentials are configured
	dryRun bool
}

func NewClient(config shared.TwilioConfig, appUrl string, logg *zap.SugaredLogger) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client:           client,
		config:           config,
		webhookBaseURL:   appUrl,
		requestValidator: twilioUtil.NewRequestValidator(config.AuthToken),
		logg:             logg,
		dryRun:           config.AccountSid == "" || config.AuthToken == "",
	}
}

func (cw *ClientWrapper) DryRun() bool {
	return cw.dryRun
}

func (cw *ClientWrapper) SendMessage(to, msg string) error {
	if cw.dryRun {
		cw.logg.Infof(colors.Blue("[twilio] ")+"dry run, sms to %v: %v", to, msg)
		return nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)
	if cw.webhookBaseURL != "" {
		params.SetStatusCallback(fullRequestURL(cw.webhookBaseURL, StatusCallbackPath))
	}

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return errors.Wrapf(err, "unable to send sms to %v", to)
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("sms to %v failed: %v", to, *resp.ErrorMessage)
	}

	if resp.Sid != nil {
		cw.logg.Infof(colors.Blue("[twilio] ")+"sms queued with sid=%v", *resp.Sid)
	}

	return nil
}

func (cw *ClientWrapper) ValidateRequest(path string, urlValues url.Values, expectedSignature string) bool {
	// Get 'urlValues' as map[string]string so it's compatible with twilio request validator
	params := make(map[string]string)
	for key, val := range urlValues {
		params[key] = strings.Join(val, ",")
	}

	return cw.requestValidator.Validate(fullRequestURL(cw.webhookBaseURL, path), params, expectedSignature)
}

func fullRequestURL(appUrl, path string) string {
	refinedUrl := strings.TrimSuffix(appUrl, "/")

	// Set default scheme to https
	if !strings.HasPrefix(refinedUrl, "http") {
		refinedUrl = "https://" + refinedUrl
	}

	return refinedUrl + path
}
