package location

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var (
	ErrUnsupported      = errors.New("geolocation is not supported on this device")
	ErrPermissionDenied = errors.New("location access denied by user")
	ErrUnavailable      = errors.New("location information unavailable")
	ErrTimeout          = errors.New("location request timed out")
	ErrInvalidPosition  = errors.New("latitude must be within [-90, 90] & longitude within [-180, 180]")
)

// DefaultOptions mirror what a mobile client asks of its positioning API:
// high accuracy, give up after 15s, accept a fix up to a minute old.
var DefaultOptions = Options{
	HighAccuracy: true,
	Timeout:      15 * time.Second,
	MaximumAge:   60 * time.Second,
}

type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Positioner is the platform positioning capability
type Positioner interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// Provider turns a Positioner into formatted coordinate strings & classifies
// its failures into one of the Err* values above.
type Provider struct {
	positioner Positioner
	opts       Options
	clock      clock.Clock
}

// NewProvider returns a Provider. A nil positioner yields a Provider whose
// every lookup fails with ErrUnsupported.
func NewProvider(positioner Positioner, opts Options, clk clock.Clock) *Provider {
	return &Provider{positioner: positioner, opts: opts, clock: clk}
}

// Locate resolves the current position as "<lat>, <lon>" with 6 decimal places.
// There is no retry, callers decide whether to surface or swallow the error.
func (p *Provider) Locate(ctx context.Context) (string, error) {
	if p == nil || p.positioner == nil {
		return "", ErrUnsupported
	}

	// expired stays nil, never ready, without a timeout
	var expired chan struct{}
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()

		expired = make(chan struct{})
		timer := p.clock.AfterFunc(p.opts.Timeout, func() {
			close(expired)
			cancel()
		})
		defer timer.Stop()
	}

	pos, err := p.positioner.CurrentPosition(ctx, p.opts)
	if err != nil {
		select {
		case <-expired:
			return "", ErrTimeout
		default:
			return "", classify(err)
		}
	}

	return Format(pos), nil
}

// Describe labels formatted coordinates for people reading them
func Describe(coordinates string) string {
	return fmt.Sprintf("Coordinates: %s", coordinates)
}

func Format(pos Position) string {
	return fmt.Sprintf("%.6f, %.6f", pos.Latitude, pos.Longitude)
}

// MapsURL links to the coordinates on a map, for SMS bodies
func MapsURL(coordinates string) string {
	return fmt.Sprintf("https://maps.google.com/?q=%s", strings.ReplaceAll(coordinates, " ", ""))
}

func (pos Position) Validate() error {
	if pos.Latitude < -90 || pos.Latitude > 90 || pos.Longitude < -180 || pos.Longitude > 180 {
		return ErrInvalidPosition
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnsupported),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return errors.Wrap(ErrUnavailable, err.Error())
	}
}
