package location

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
)

// Beacon is a Positioner fed by the user's device, which reports its
// fixes (or its refusal to share them) to the server.
type Beacon struct {
	clock clock.Clock

	mu      sync.Mutex
	last    *Position
	denied  bool
	updated chan struct{}
}

func NewBeacon(clk clock.Clock) *Beacon {
	return &Beacon{clock: clk, updated: make(chan struct{})}
}

// Report records the latest fix from the device & wakes up waiting lookups.
// A missing timestamp, or one ahead of the server's clock, is taken as now.
func (b *Beacon) Report(pos Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}

	now := b.clock.Now()
	if pos.Timestamp.IsZero() || pos.Timestamp.After(now) {
		pos.Timestamp = now
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = &pos
	b.denied = false
	b.broadcast()

	return nil
}

// Deny records that the device refused location access. Any cached fix is dropped.
func (b *Beacon) Deny() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = nil
	b.denied = true
	b.broadcast()
}

// CurrentPosition returns the cached fix when it is no older than opts.MaximumAge,
// otherwise it waits for the device's next report until ctx is done.
func (b *Beacon) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	for {
		b.mu.Lock()
		if b.denied {
			b.mu.Unlock()
			return Position{}, ErrPermissionDenied
		}

		if b.last != nil && b.clock.Now().Sub(b.last.Timestamp) <= opts.MaximumAge {
			pos := *b.last
			b.mu.Unlock()
			return pos, nil
		}
		updated := b.updated
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return Position{}, ErrTimeout
			}
			return Position{}, ctx.Err()
		case <-updated:
		}
	}
}

// broadcast must be called with b.mu held
func (b *Beacon) broadcast() {
	close(b.updated)
	b.updated = make(chan struct{})
}
