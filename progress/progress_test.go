package progress

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestMultiSinkOrder(t *testing.T) {
	var got []string
	first := SinkFunc(func(ev Event) { got = append(got, "first:"+ev.Message) })
	second := SinkFunc(func(ev Event) { got = append(got, "second:"+ev.Message) })

	sink := MultiSink{first, second}
	sink.Emit(Event{Message: "a"})
	sink.Emit(Event{Message: "b"})

	want := []string{"first:a", "second:a", "first:b", "second:b"}
	if len(got) != len(want) {
		t.Fatalf("got %d emissions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("emission %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChanSinkDropsOldestWhenFull(t *testing.T) {
	sink := NewChanSink(2)
	sink.Emit(Event{Message: "a"})
	sink.Emit(Event{Message: "b"})
	sink.Emit(Event{Message: "c"})
	sink.Close()

	var got []string
	for ev := range sink.Events() {
		got = append(got, ev.Message)
	}
	want := []string{"b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSubject(t *testing.T) {
	if got := Subject("job-42"); got != "spool.progress.job-42" {
		t.Errorf("Subject: got %q", got)
	}
}

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestNATSSinkPublishes(t *testing.T) {
	conn := &recordingConn{}
	sink := newNATSSink(conn)

	sink.Emit(Event{
		JobID:   "j1",
		Phase:   PhaseProcessing,
		Message: "unit 3 done",
		Current: 3,
		Total:   8,
		UnitID:  3,
	})

	if len(conn.subjects) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(conn.subjects))
	}
	if conn.subjects[0] != "spool.progress.j1" {
		t.Errorf("subject: got %q", conn.subjects[0])
	}

	var decoded struct {
		JobID     string `json:"job_id"`
		Phase     string `json:"phase"`
		Current   int    `json:"current"`
		Total     int    `json:"total"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(conn.payloads[0], &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded.JobID != "j1" || decoded.Phase != "processing" {
		t.Errorf("payload: got %+v", decoded)
	}
	if decoded.Current != 3 || decoded.Total != 8 {
		t.Errorf("progress counters: got %d/%d", decoded.Current, decoded.Total)
	}
	if decoded.Timestamp == "" {
		t.Error("expected timestamp in envelope")
	}
}

func TestNATSSinkSwallowsPublishError(t *testing.T) {
	conn := &recordingConn{err: errors.New("connection closed")}
	sink := newNATSSink(conn)

	// Must not panic or propagate.
	sink.Emit(Event{JobID: "j1", Phase: PhaseError, Message: "boom"})
}

func TestEventJSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(Event{JobID: "j1", Phase: PhaseComplete, Message: "done"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, field := range []string{"current", "total", "unit_id", "partial_content"} {
		if strings.Contains(s, field) {
			t.Errorf("expected %q omitted from %s", field, s)
		}
	}
}
