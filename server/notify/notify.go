// Package notify texts the configured recipients when an alert fires.
package notify

import (
	"fmt"

	"github.com/Daskott/safecall/colors"
	"github.com/Daskott/safecall/server/alert"
	"github.com/Daskott/safecall/server/location"
	"github.com/Daskott/safecall/server/work"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const SendAlertSmsJob = "send_alert_sms"

type Messenger interface {
	SendMessage(to, msg string) error
}

type Performer interface {
	Perform(job work.JobParams) error
}

type Registrar interface {
	Register(name string, handler work.Handler) error
}

// SmsNotifier is an alert.Sink that turns a fired alert into one sms job per
// recipient, so a slow or failing provider never holds up the trigger.
type SmsNotifier struct {
	performer  Performer
	messenger  Messenger
	recipients []string
	ownerName  string
	logg       *zap.SugaredLogger
}

func NewSmsNotifier(performer Performer, messenger Messenger, recipients []string, ownerName string, logg *zap.SugaredLogger) *SmsNotifier {
	return &SmsNotifier{
		performer:  performer,
		messenger:  messenger,
		recipients: recipients,
		ownerName:  ownerName,
		logg:       logg,
	}
}

// Register binds the sms job handler to the worker pool
func (n *SmsNotifier) Register(registrar Registrar) error {
	return registrar.Register(SendAlertSmsJob, n.sendAlertSms)
}

func (n *SmsNotifier) Publish(signal alert.Signal) {
	if signal.Kind != alert.SignalContactsNotified {
		return
	}

	body := AlertMessage(n.ownerName, signal.Location)
	for _, recipient := range n.recipients {
		err := n.performer.Perform(work.JobParams{
			Name:    fmt.Sprintf("%v_%v_%v", SendAlertSmsJob, recipient, signal.At.UnixNano()),
			Handler: SendAlertSmsJob,
			Unique:  true,
			Args:    map[string]interface{}{"to": recipient, "body": body},
		})
		if err != nil {
			n.logg.Errorf(colors.Red("[notify] ")+"unable to queue sms for %v: %v", recipient, err)
		}
	}
}

func (n *SmsNotifier) sendAlertSms(args map[string]interface{}) error {
	to, ok := args["to"].(string)
	if !ok || to == "" {
		return fmt.Errorf("%v: 'to' is required", SendAlertSmsJob)
	}
	body, ok := args["body"].(string)
	if !ok || body == "" {
		return fmt.Errorf("%v: 'body' is required", SendAlertSmsJob)
	}

	if err := n.messenger.SendMessage(to, body); err != nil {
		return errors.Wrap(err, SendAlertSmsJob)
	}
	return nil
}

// AlertMessage is the sms body sent to each recipient
func AlertMessage(ownerName, coordinates string) string {
	if ownerName == "" {
		ownerName = "Someone"
	}

	msg := fmt.Sprintf("EMERGENCY: %v triggered a safety alert and may need help.", ownerName)
	if coordinates == "" {
		return msg + " Their location is unavailable, try calling them."
	}
	return fmt.Sprintf("%v Last known location: %v %v", msg, coordinates, location.MapsURL(coordinates))
}
