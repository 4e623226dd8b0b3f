package location

import (
	"context"
	"time"
)

// Fixed always reports the same coordinate, e.g. a home address set in the
// CLI config for a machine that has no positioning hardware.
type Fixed struct {
	Latitude  float64
	Longitude float64
}

func (f Fixed) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}

	pos := Position{Latitude: f.Latitude, Longitude: f.Longitude, Timestamp: time.Now()}
	return pos, pos.Validate()
}
