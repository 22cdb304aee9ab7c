// package trace records pipeline decisions as an append-only JSONL audit log
package trace

import (
	"encoding/json"
	"io"
	"time"
)

// Agent names the pipeline stage that emitted a record.
type Agent string

const (
	AgentResolver   Agent = "resolver"
	AgentCurator    Agent = "curator"
	AgentCritic     Agent = "critic"
	AgentCompliance Agent = "compliance"
)

// Status is the outcome of one decision.
type Status string

const (
	StatusOK             Status = "ok"
	StatusDeny           Status = "deny"
	StatusDrop           Status = "drop"
	StatusBudgetExceeded Status = "budget_exceeded"
)

// Details is the optional structured payload of a record.
type Details map[string]any

// Record is one line of a trace file.
type Record struct {
	SpanID    int       `json:"span_id"`
	Timestamp time.Time `json:"ts"`
	Agent     Agent     `json:"agent"`
	Tool      string    `json:"tool"`
	Status    Status    `json:"status"`
	Details   Details   `json:"details,omitempty"`
}

// Tracer is the write side used by pipeline stages.
type Tracer interface {
	Record(agent Agent, tool string, status Status, details Details)
}

// Recorder writes records to w, numbering them from 1.
//
// A Recorder belongs to a single run and is not safe for concurrent use.
// Write failures never interrupt the run; the first one is kept and reported by [Recorder.Err].
type Recorder struct {
	enc  *json.Encoder
	now  func() time.Time
	next int
	err  error
}

// NewRecorder returns a Recorder writing to w. A nil clock uses [time.Now].
func NewRecorder(w io.Writer, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{enc: json.NewEncoder(w), now: now, next: 1}
}

// Record appends one record. The span id advances even when the write fails so ids stay unique.
func (r *Recorder) Record(agent Agent, tool string, status Status, details Details) {
	rec := Record{
		SpanID:    r.next,
		Timestamp: r.now().UTC(),
		Agent:     agent,
		Tool:      tool,
		Status:    status,
		Details:   details,
	}
	r.next++

	if err := r.enc.Encode(rec); err != nil && r.err == nil {
		r.err = err
	}
}

// Spans returns the number of records written so far.
func (r *Recorder) Spans() int {
	return r.next - 1
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	return r.err
}

// Discard is a Tracer that drops every record.
var Discard Tracer = discard{}

type discard struct{}

func (discard) Record(Agent, string, Status, Details) {}
