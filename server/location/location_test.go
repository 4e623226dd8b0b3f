package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type positionerFunc func(ctx context.Context, opts Options) (Position, error)

func (f positionerFunc) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	return f(ctx, opts)
}

func TestLocateFormatsCoordinates(t *testing.T) {
	provider := NewProvider(Fixed{Latitude: 43.6532, Longitude: -79.3832}, DefaultOptions, clock.New())

	loc, err := provider.Locate(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "43.653200, -79.383200", loc)
	assert.Equal(t, "Coordinates: 43.653200, -79.383200", Describe(loc))
}

func TestLocateWithoutPositionerIsUnsupported(t *testing.T) {
	_, err := NewProvider(nil, DefaultOptions, clock.New()).Locate(context.Background())
	assert.True(t, errors.Is(err, ErrUnsupported))

	var provider *Provider
	_, err = provider.Locate(context.Background())
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestLocateClassifiesFailures(t *testing.T) {
	testCases := []struct {
		description string
		returned    error
		expected    error
	}{
		{"permission denied passes through", ErrPermissionDenied, ErrPermissionDenied},
		{"deadline exceeded becomes timeout", context.DeadlineExceeded, ErrTimeout},
		{"unknown failure becomes unavailable", errors.New("gps chip on fire"), ErrUnavailable},
		{"unavailable passes through", ErrUnavailable, ErrUnavailable},
	}

	for _, tcase := range testCases {
		t.Run(tcase.description, func(t *testing.T) {
			provider := NewProvider(positionerFunc(func(ctx context.Context, opts Options) (Position, error) {
				return Position{}, tcase.returned
			}), DefaultOptions, clock.New())

			_, err := provider.Locate(context.Background())
			assert.True(t, errors.Is(err, tcase.expected), "got %v", err)
		})
	}
}

func TestLocateTimesOutOnTheProviderClock(t *testing.T) {
	mock := clock.NewMock()
	provider := NewProvider(NewBeacon(mock), DefaultOptions, mock)

	errs := make(chan error, 1)
	go func() {
		_, err := provider.Locate(context.Background())
		errs <- err
	}()

	// Nothing reported, so the lookup can only end once the mock clock passes the timeout
	select {
	case err := <-errs:
		t.Fatalf("lookup returned before its timeout: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	var err error
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		select {
		case err = <-errs:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, ErrTimeout, err)
	assert.GreaterOrEqual(t, mock.Now().Sub(time.Unix(0, 0)), DefaultOptions.Timeout)
}

func TestLocateKeepsCallerCancellation(t *testing.T) {
	mock := clock.NewMock()
	provider := NewProvider(NewBeacon(mock), DefaultOptions, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Locate(ctx)
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestBeaconServesFreshCachedFix(t *testing.T) {
	mock := clock.NewMock()
	beacon := NewBeacon(mock)

	require.Nil(t, beacon.Report(Position{Latitude: 1.5, Longitude: 2.25}))
	mock.Add(30 * time.Second)

	pos, err := beacon.CurrentPosition(context.Background(), DefaultOptions)
	require.Nil(t, err)
	assert.Equal(t, 1.5, pos.Latitude)
	assert.Equal(t, 2.25, pos.Longitude)
}

func TestBeaconWaitsForNextReportWhenCacheIsStale(t *testing.T) {
	mock := clock.NewMock()
	beacon := NewBeacon(mock)

	require.Nil(t, beacon.Report(Position{Latitude: 1, Longitude: 1}))
	mock.Add(2 * time.Minute)

	result := make(chan Position, 1)
	go func() {
		pos, err := beacon.CurrentPosition(context.Background(), DefaultOptions)
		if err == nil {
			result <- pos
		}
	}()

	// Keep reporting until the waiting lookup picks a fresh fix up
	assert.Eventually(t, func() bool {
		_ = beacon.Report(Position{Latitude: 10, Longitude: 20})
		select {
		case pos := <-result:
			return pos.Latitude == 10
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestBeaconTreatsFutureFixAsReportedNow(t *testing.T) {
	mock := clock.NewMock()
	beacon := NewBeacon(mock)

	require.Nil(t, beacon.Report(Position{Latitude: 1, Longitude: 2, Timestamp: mock.Now().Add(time.Hour)}))

	pos, err := beacon.CurrentPosition(context.Background(), DefaultOptions)
	require.Nil(t, err)
	assert.Equal(t, mock.Now(), pos.Timestamp)

	// Half an hour later the fix is well past its maximum age
	mock.Add(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = beacon.CurrentPosition(ctx, DefaultOptions)
	assert.Equal(t, ErrTimeout, err)
}

func TestBeaconTimesOutWithoutReport(t *testing.T) {
	beacon := NewBeacon(clock.New())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := beacon.CurrentPosition(ctx, DefaultOptions)
	assert.Equal(t, ErrTimeout, err)
}

func TestBeaconDenied(t *testing.T) {
	beacon := NewBeacon(clock.New())
	require.Nil(t, beacon.Report(Position{Latitude: 1, Longitude: 1}))

	beacon.Deny()
	_, err := beacon.CurrentPosition(context.Background(), DefaultOptions)
	assert.Equal(t, ErrPermissionDenied, err)

	// A new report lifts the denial
	require.Nil(t, beacon.Report(Position{Latitude: 3, Longitude: 4}))
	pos, err := beacon.CurrentPosition(context.Background(), DefaultOptions)
	require.Nil(t, err)
	assert.Equal(t, 3.0, pos.Latitude)
}

func TestBeaconRejectsInvalidPosition(t *testing.T) {
	beacon := NewBeacon(clock.New())
	assert.Equal(t, ErrInvalidPosition, beacon.Report(Position{Latitude: 91, Longitude: 0}))
	assert.Equal(t, ErrInvalidPosition, beacon.Report(Position{Latitude: 0, Longitude: -181}))
}

func TestMapsURL(t *testing.T) {
	assert.Equal(t, "https://maps.google.com/?q=43.653200,-79.383200", MapsURL("43.653200, -79.383200"))
}
