package alert

import "time"

type SignalKind string

const (
	SignalArmed            SignalKind = "armed"
	SignalTick             SignalKind = "tick"
	SignalLocationAttached SignalKind = "location_attached"
	SignalLocationFailed   SignalKind = "location_failed"
	SignalContactsNotified SignalKind = "contacts_notified"
	SignalLocationShared   SignalKind = "location_shared"
	SignalCancelled        SignalKind = "cancelled"
	SignalReset            SignalKind = "reset"
)

// Signal is what the trigger tells the surrounding UI (and notifiers) about.
type Signal struct {
	Kind      SignalKind `json:"kind"`
	Remaining int        `json:"remaining"`
	Location  string     `json:"location,omitempty"`
	Message   string     `json:"message,omitempty"`
	At        time.Time  `json:"at"`
}

// Sink receives signals in the order they happen, one at a time. Publish may
// call back into the Trigger; signals it causes are delivered after it returns.
type Sink interface {
	Publish(signal Signal)
}

type SinkFunc func(signal Signal)

func (f SinkFunc) Publish(signal Signal) {
	f(signal)
}

// Sinks fans a signal out to every sink in the list
type Sinks []Sink

func (sinks Sinks) Publish(signal Signal) {
	for _, sink := range sinks {
		if sink != nil {
			sink.Publish(signal)
		}
	}
}
