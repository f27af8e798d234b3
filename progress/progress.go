// Package progress defines the typed event stream a running job produces.
// The pipeline emits; boundary layers (CLI, UI, message bus) subscribe.
package progress

import "log/slog"

// Phase identifies where in the pipeline an event originated.
type Phase string

const (
	PhasePlanning    Phase = "planning"
	PhaseWindowing   Phase = "windowing"
	PhaseProcessing  Phase = "processing"
	PhaseAggregating Phase = "aggregating"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// Event is one progress notification. Events for a given job are delivered
// in emission order.
type Event struct {
	JobID   string `json:"job_id"`
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`

	// Current and Total describe unit progress when relevant.
	Current int `json:"current,omitempty"`
	Total   int `json:"total,omitempty"`

	// UnitID identifies the unit the event concerns, when any.
	UnitID int `json:"unit_id,omitempty"`

	// PartialContent carries the aggregated-so-far artifact on unit
	// completion so consumers can display results before the job ends.
	PartialContent string `json:"partial_content,omitempty"`
}

// Sink consumes progress events. Implementations must not block
// indefinitely; the run loop calls Emit synchronously to preserve ordering.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ev Event) { f(ev) }

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// ChanSink buffers events on a channel for a consumer to pull. When the
// buffer is full the oldest event is dropped so the run loop never blocks.
type ChanSink struct {
	ch chan Event
}

// NewChanSink returns a sink buffering up to size events.
func NewChanSink(size int) *ChanSink {
	if size < 1 {
		size = 1
	}
	return &ChanSink{ch: make(chan Event, size)}
}

// Events returns the receive side of the sink.
func (c *ChanSink) Events() <-chan Event {
	return c.ch
}

// Close closes the event channel. Emit must not be called afterwards.
func (c *ChanSink) Close() {
	close(c.ch)
}

// Emit implements Sink.
func (c *ChanSink) Emit(ev Event) {
	for {
		select {
		case c.ch <- ev:
			return
		default:
			select {
			case <-c.ch:
			default:
			}
		}
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Emit implements Sink.
func (l LogSink) Emit(ev Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Job progress",
		"job_id", ev.JobID,
		"phase", ev.Phase,
		"message", ev.Message,
		"current", ev.Current,
		"total", ev.Total)
}
