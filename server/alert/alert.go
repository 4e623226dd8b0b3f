// Package alert implements the panic button: arm, a five second countdown
// that can be cancelled, then a single fire that notifies contacts & shares
// the user's location, followed by a short display window before going idle.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Daskott/safecall/colors"
	"github.com/Daskott/safecall/server/location"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	CountdownSeconds = 5
	DisplayWindow    = 3 * time.Second

	tickInterval = time.Second
)

type Phase string

const (
	Idle     Phase = "idle"
	Counting Phase = "counting"
	// Fired is the display window after the alert went out, the countdown sits at 0
	Fired Phase = "fired"
)

type State struct {
	Phase     Phase  `json:"phase"`
	Remaining int    `json:"remaining"`
	Location  string `json:"location,omitempty"`
}

type Locator interface {
	Locate(ctx context.Context) (string, error)
}

// Trigger owns the alert state. Every timer & location lookup is tagged with
// the generation it was started in, & its result is dropped if the trigger
// has since moved on (cancelled, fired, re-armed or closed).
type Trigger struct {
	clock   clock.Clock
	locator Locator
	sink    Sink
	logg    *zap.SugaredLogger

	mu           sync.Mutex
	state        State
	generation   uint64
	timer        *clock.Timer
	cancelLookup context.CancelFunc
	closed       bool

	// outbox holds signals in the order the state changed until the
	// delivering goroutine hands them to the sink
	outbox     []Signal
	delivering bool

	lookups sync.WaitGroup
}

func NewTrigger(clk clock.Clock, locator Locator, sink Sink, logg *zap.SugaredLogger) *Trigger {
	return &Trigger{
		clock:   clk,
		locator: locator,
		sink:    sink,
		logg:    logg,
		state:   State{Phase: Idle},
	}
}

func (t *Trigger) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Arm starts the countdown & an asynchronous location lookup. It only works
// from Idle; pressing it again while counting is ignored.
func (t *Trigger) Arm() (State, bool) {
	t.mu.Lock()
	if t.closed || t.state.Phase != Idle {
		state := t.state
		t.mu.Unlock()
		return state, false
	}

	t.generation++
	gen := t.generation
	t.state = State{Phase: Counting, Remaining: CountdownSeconds}
	t.timer = t.clock.AfterFunc(tickInterval, func() { t.tick(gen) })

	ctx, cancel := context.WithCancel(context.Background())
	t.cancelLookup = cancel
	t.lookups.Add(1)
	go t.lookup(ctx, gen)

	state := t.state
	t.logInfof("alert armed, firing in %v seconds", CountdownSeconds)
	t.emitAndUnlock(Signal{
		Kind:      SignalArmed,
		Remaining: state.Remaining,
		Message:   fmt.Sprintf("Emergency alert will be sent in %v seconds. Press Cancel to stop.", CountdownSeconds),
	})

	return state, true
}

// Cancel stops a running countdown right away. The pending tick & any
// in-flight lookup result are discarded. Outside of Counting it does nothing.
func (t *Trigger) Cancel() (State, bool) {
	t.mu.Lock()
	if t.state.Phase != Counting {
		state := t.state
		t.mu.Unlock()
		return state, false
	}

	t.generation++
	t.stopPending()
	t.state = State{Phase: Idle}

	t.logInfof("alert cancelled")
	t.emitAndUnlock(Signal{Kind: SignalCancelled, Message: "Emergency alert cancelled."})

	return State{Phase: Idle}, true
}

// Close stops all timers & waits for in-flight lookups to return. The trigger
// can't be armed afterwards.
func (t *Trigger) Close() {
	t.mu.Lock()
	t.closed = true
	t.generation++
	t.stopPending()
	t.mu.Unlock()

	t.lookups.Wait()
}

func (t *Trigger) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || t.state.Phase != Counting {
		t.mu.Unlock()
		return
	}

	t.state.Remaining--
	signals := []Signal{{Kind: SignalTick, Remaining: t.state.Remaining, Location: t.state.Location}}

	if t.state.Remaining > 0 {
		t.timer = t.clock.AfterFunc(tickInterval, func() { t.tick(gen) })
		t.emitAndUnlock(signals...)
		return
	}

	signals = append(signals, t.fire(gen)...)
	t.emitAndUnlock(signals...)
}

// fire must be called with t.mu held, it runs exactly once per generation
// since only the tick that reaches 0 gets here.
func (t *Trigger) fire(gen uint64) []Signal {
	t.state.Phase = Fired
	if t.cancelLookup != nil {
		t.cancelLookup()
		t.cancelLookup = nil
	}
	t.timer = t.clock.AfterFunc(DisplayWindow, func() { t.reset(gen) })

	t.logInfof("alert fired, location=%q", t.state.Location)
	return []Signal{
		{Kind: SignalContactsNotified, Location: t.state.Location, Message: "Emergency contacts have been notified!"},
		{Kind: SignalLocationShared, Location: t.state.Location, Message: "Location shared with emergency contacts"},
	}
}

func (t *Trigger) reset(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || t.state.Phase != Fired {
		t.mu.Unlock()
		return
	}

	t.timer = nil
	t.state = State{Phase: Idle}
	t.emitAndUnlock(Signal{Kind: SignalReset})
}

func (t *Trigger) lookup(ctx context.Context, gen uint64) {
	defer t.lookups.Done()

	var loc string
	err := location.ErrUnsupported
	if t.locator != nil {
		loc, err = t.locator.Locate(ctx)
	}

	t.mu.Lock()
	if gen != t.generation || t.state.Phase != Counting {
		t.mu.Unlock()
		t.logg.Debugf("dropping stale location lookup result (generation %v)", gen)
		return
	}

	if err != nil {
		t.logg.Warnf("could not get location: %v", err)
		t.emitAndUnlock(Signal{
			Kind:      SignalLocationFailed,
			Remaining: t.state.Remaining,
			Message:   err.Error(),
		})
		return
	}

	t.state.Location = loc
	t.emitAndUnlock(Signal{Kind: SignalLocationAttached, Remaining: t.state.Remaining, Location: loc})
}

// stopPending must be called with t.mu held
func (t *Trigger) stopPending() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cancelLookup != nil {
		t.cancelLookup()
		t.cancelLookup = nil
	}
}

// emitAndUnlock must be called with t.mu held & releases it. Only one
// goroutine delivers at a time, any other emitter leaves its signals in the
// outbox for it. The sink runs without mu held so it may read State, or even
// Arm & Cancel.
func (t *Trigger) emitAndUnlock(signals ...Signal) {
	now := t.clock.Now()
	for _, signal := range signals {
		signal.At = now
		t.outbox = append(t.outbox, signal)
	}

	if t.delivering {
		t.mu.Unlock()
		return
	}
	t.delivering = true

	for len(t.outbox) > 0 {
		batch := t.outbox
		t.outbox = nil
		t.mu.Unlock()

		if t.sink != nil {
			for _, signal := range batch {
				t.sink.Publish(signal)
			}
		}

		t.mu.Lock()
	}

	t.delivering = false
	t.mu.Unlock()
}

func (t *Trigger) logInfof(template string, args ...interface{}) {
	t.logg.Infof(colors.Red("[alert] ")+template, args...)
}
