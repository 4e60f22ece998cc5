package task

import (
	"fmt"
	"time"
)

// Task is one managed unit of work: a (schema, table) with its DDL, INSERT,
// tests, and runtime state, per spec.md §3.
//
// The identity fields (everything but the runtime block) are populated once
// by the Suite Loader and never mutated afterwards. The runtime fields are
// mutated by the Scheduler: the coordinator goroutine dispatches the Task and
// records its Failed/Skipped outcome, and the worker goroutine executing it
// advances State through the Running_* states to Success.
type Task struct {
	ID ID

	DDLSQL    string
	InsertSQL string

	// Reads is every schema-qualified table this Task's INSERT script reads
	// from, regardless of whether that table is part of the suite.
	Reads map[ID]bool

	// Writes must equal ID; a mismatch is a load-time error (enforced by the
	// Suite Loader, not here).
	Writes ID

	Tests []TestDirective

	IsIncremental bool
	Params        []string

	// CacheKey is the sha256-based dev-stage cache key derived from the
	// Task's (dev-rewritten) DDL and INSERT text. Populated by the Suite
	// Loader once dev-stage rewriting has happened; empty in prod stage.
	CacheKey string

	// Runtime fields, mutated only by the Scheduler.
	State      State
	Cause      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func New(id ID) *Task {
	return &Task{
		ID:     id,
		Writes: id,
		Reads:  map[ID]bool{},
		State:  Pending,
	}
}

// Transition moves the Task to next, returning an error if that would
// violate the monotonic lifecycle invariant.
func (t *Task) Transition(next State) error {
	if !t.State.CanTransition(next) {
		return fmt.Errorf("task %s: illegal transition %s -> %s", t.ID, t.State, next)
	}
	if t.State == Pending && next != Pending {
		// no-op; StartedAt is set explicitly by the scheduler on dispatch
	}
	t.State = next
	return nil
}

// Fail transitions the Task to Failed, recording cause.
func (t *Task) Fail(cause string) error {
	if err := t.Transition(Failed); err != nil {
		return err
	}
	t.Cause = cause
	return nil
}

// Skip transitions the Task to Skipped, recording cause.
func (t *Task) Skip(cause string) error {
	if err := t.Transition(Skipped); err != nil {
		return err
	}
	t.Cause = cause
	return nil
}

// ReadIDs returns the Task's read set as a slice, for deterministic
// iteration (callers sort as needed).
func (t *Task) ReadIDs() []ID {
	out := make([]ID, 0, len(t.Reads))
	for id := range t.Reads {
		out = append(out, id)
	}
	return out
}
