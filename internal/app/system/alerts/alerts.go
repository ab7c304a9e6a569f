// Package alerts delivers ephemeral, auto-dismissing UI alerts. Every Sink
// is fire-and-forget: Show never blocks on the client, never returns an
// error, and is a no-op once the sink is closed.
package alerts

import "time"

// Alert is one transient message for a signed-in user.
type Alert struct {
	Recipient   string    `json:"recipient"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RelatedID   string    `json:"related_id,omitempty"`
	At          time.Time `json:"at"`
}

// Sink shows alerts.
type Sink interface {
	Show(a Alert)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Alert)

// Show calls f(a).
func (f SinkFunc) Show(a Alert) { f(a) }

// Multi fans an alert out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) Show(a Alert) {
	for _, s := range m {
		s.Show(a)
	}
}
