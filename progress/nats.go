package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is the root of the subject hierarchy progress events are
// published under. Per-job events use SubjectPrefix + "." + jobID.
const SubjectPrefix = "spool.progress"

// Subject returns the NATS subject for a job's progress stream.
func Subject(jobID string) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, jobID)
}

// natsConn is the publishing surface of a NATS connection. *nats.Conn
// satisfies it; tests substitute a recorder.
type natsConn interface {
	Publish(subject string, data []byte) error
}

var _ natsConn = (*nats.Conn)(nil)

// NATSSink publishes each event as JSON on the job's progress subject.
// Publish failures are logged and swallowed so a flapping bus never
// interrupts a run.
type NATSSink struct {
	conn   natsConn
	logger *slog.Logger
}

// NATSSinkOption configures a NATSSink.
type NATSSinkOption func(*NATSSink)

// WithNATSLogger sets the logger used for publish failures.
func WithNATSLogger(logger *slog.Logger) NATSSinkOption {
	return func(s *NATSSink) {
		s.logger = logger
	}
}

// NewNATSSink creates a sink publishing on conn.
func NewNATSSink(conn *nats.Conn, opts ...NATSSinkOption) *NATSSink {
	return newNATSSink(conn, opts...)
}

func newNATSSink(conn natsConn, opts ...NATSSinkOption) *NATSSink {
	s := &NATSSink{
		conn:   conn,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit implements Sink.
func (s *NATSSink) Emit(ev Event) {
	data, err := json.Marshal(wireEvent{Event: ev, Timestamp: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("Failed to marshal progress event", "error", err)
		return
	}
	if err := s.conn.Publish(Subject(ev.JobID), data); err != nil {
		s.logger.Warn("Failed to publish progress event",
			"subject", Subject(ev.JobID),
			"error", err)
	}
}

// wireEvent is the published envelope. The timestamp is added at publish
// time so subscribers can order across reconnects.
type wireEvent struct {
	Event
	Timestamp time.Time `json:"timestamp"`
}
