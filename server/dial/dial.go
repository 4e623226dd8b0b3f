// Package dial produces the platform actions (call, text, clipboard) that
// the client performs on the user's behalf. The server never places a call
// or sends a crisis text itself, it hands back an intent to act on.
package dial

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	CallIntent = "call"
	TextIntent = "text"

	// CrisisTextKeyword is what a user texts to a crisis short code to start a conversation
	CrisisTextKeyword = "HOME"
)

var ErrEmptyNumber = errors.New("a phone number is required")

type Intent struct {
	Kind   string `json:"kind"`
	URI    string `json:"uri,omitempty"`
	Number string `json:"number"`
	Notice string `json:"notice"`
}

type Dialer interface {
	Dial(ctx context.Context, number, name string) (Intent, error)
	Text(ctx context.Context, number, name string) (Intent, error)
}

// IntentDialer logs each action & returns the intent for the client to open.
type IntentDialer struct {
	logg *zap.SugaredLogger
}

func NewIntentDialer(logg *zap.SugaredLogger) *IntentDialer {
	return &IntentDialer{logg: logg}
}

func (d *IntentDialer) Dial(ctx context.Context, number, name string) (Intent, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return Intent{}, ErrEmptyNumber
	}

	d.logg.Infof("dial intent for %v (%v)", name, number)
	return Intent{
		Kind:   CallIntent,
		URI:    TelURI(number),
		Number: number,
		Notice: fmt.Sprintf("Calling %s...", name),
	}, nil
}

func (d *IntentDialer) Text(ctx context.Context, number, name string) (Intent, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return Intent{}, ErrEmptyNumber
	}

	d.logg.Infof("text intent for %v (%v)", name, number)
	return Intent{
		Kind:   TextIntent,
		Number: number,
		Notice: fmt.Sprintf("Text \"%s\" to %s for crisis support", CrisisTextKeyword, number),
	}, nil
}

// TelURI follows the tel: convention used by mobile platforms to open the dialer
func TelURI(number string) string {
	return "tel:" + number
}
