// Package job tracks pipeline runs: per-unit state, accumulated results,
// and the control loop that drives units through the generation pipeline.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spoolkit/spool/plan"
	"github.com/spoolkit/spool/unit"
)

// UnitStatus is the lifecycle state of a single unit within a run.
type UnitStatus string

const (
	// UnitPending means the unit has not been selected for processing.
	UnitPending UnitStatus = "pending"
	// UnitSelected means the unit is queued for the current run.
	UnitSelected UnitStatus = "selected"
	// UnitInProgress means a generation attempt is underway.
	UnitInProgress UnitStatus = "in_progress"
	// UnitDone means the unit produced a usable result.
	UnitDone UnitStatus = "done"
	// UnitFailed means the attempt errored. Failed units are re-selectable.
	UnitFailed UnitStatus = "failed"
)

// canTransition enumerates the legal unit state changes. Cancellation
// reverts an in-progress unit to selected so a resume retries it.
func canTransition(from, to UnitStatus) bool {
	switch from {
	case UnitPending:
		return to == UnitSelected
	case UnitSelected:
		return to == UnitInProgress || to == UnitPending
	case UnitInProgress:
		return to == UnitDone || to == UnitFailed || to == UnitSelected
	case UnitFailed:
		return to == UnitSelected
	case UnitDone:
		return false
	}
	return false
}

// UnitState is the persisted per-unit record.
type UnitState struct {
	UnitID    int        `json:"unit_id"`
	Status    UnitStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunStatus is the overall job state.
type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunComplete  RunStatus = "complete"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Record is the durable snapshot of a job. It carries everything needed
// to resume: the plan, per-unit states, accumulated results, and the
// rolling memory entries at the moment of the last persisted transition.
type Record struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Task       string        `json:"task"`
	Status     RunStatus     `json:"status"`
	Plan       plan.JobPlan  `json:"plan"`
	Units      []UnitState   `json:"units"`
	Results    []unit.Result `json:"results"`
	Memory     []string      `json:"memory"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// UnitState returns the state entry for a unit ID, or nil.
func (r *Record) UnitState(unitID int) *UnitState {
	for i := range r.Units {
		if r.Units[i].UnitID == unitID {
			return &r.Units[i]
		}
	}
	return nil
}

// Result returns the stored result for a unit ID, or nil.
func (r *Record) Result(unitID int) *unit.Result {
	for i := range r.Results {
		if r.Results[i].UnitID == unitID {
			return &r.Results[i]
		}
	}
	return nil
}

// SetResult stores or replaces the result for its unit.
func (r *Record) SetResult(res unit.Result) {
	for i := range r.Results {
		if r.Results[i].UnitID == res.UnitID {
			r.Results[i] = res
			return
		}
	}
	r.Results = append(r.Results, res)
}

// Transition moves a unit to a new status, enforcing the state machine.
func (r *Record) Transition(unitID int, to UnitStatus) error {
	st := r.UnitState(unitID)
	if st == nil {
		return fmt.Errorf("unit %d: %w", unitID, ErrUnknownUnit)
	}
	if !canTransition(st.Status, to) {
		return fmt.Errorf("unit %d: %w: %s -> %s", unitID, ErrBadTransition, st.Status, to)
	}
	st.Status = to
	st.UpdatedAt = time.Now().UTC()
	if to == UnitInProgress {
		st.Attempts++
	}
	return nil
}

// CountByStatus tallies units in the given status.
func (r *Record) CountByStatus(status UnitStatus) int {
	n := 0
	for i := range r.Units {
		if r.Units[i].Status == status {
			n++
		}
	}
	return n
}

// NewRecord initialises a job record for a plan with all units pending.
func NewRecord(id, documentID, task string, p plan.JobPlan) *Record {
	now := time.Now().UTC()
	units := make([]UnitState, len(p.Units))
	for i, u := range p.Units {
		units[i] = UnitState{UnitID: u.ID, Status: UnitPending, UpdatedAt: now}
	}
	return &Record{
		ID:         id,
		DocumentID: documentID,
		Task:       task,
		Status:     RunActive,
		Plan:       p,
		Units:      units,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Summary is the listing view of a job.
type Summary struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Task       string    `json:"task"`
	Status     RunStatus `json:"status"`
	UnitsDone  int       `json:"units_done"`
	UnitsTotal int       `json:"units_total"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store persists job records. Implementations live under the store
// directory; the runner only sees this interface.
type Store interface {
	SaveJob(ctx context.Context, rec *Record) error
	GetJob(ctx context.Context, id string) (*Record, error)
	ListJobs(ctx context.Context) ([]Summary, error)
	DeleteJob(ctx context.Context, id string) error
}

var (
	// ErrNotFound signals a missing job record.
	ErrNotFound = errors.New("job not found")
	// ErrUnknownUnit signals a unit ID outside the plan.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrBadTransition signals an illegal unit state change.
	ErrBadTransition = errors.New("invalid state transition")
	// ErrPersistence wraps store failures that halt a run.
	ErrPersistence = errors.New("persistence failure")
	// ErrUnitFailed signals that a unit's attempt errored and the run halted.
	ErrUnitFailed = errors.New("unit failed")
)
