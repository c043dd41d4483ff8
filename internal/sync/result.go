package sync

import (
	"github.com/contenthub/hubsync/internal/artifact"
)

// State is a position in the per-item state machine.
type State string

const (
	StateSelected   State = "selected"
	StateReading    State = "reading"
	StateSending    State = "sending"
	StateSucceeded  State = "succeeded"
	StateConflicted State = "conflicted"
	StateRejected   State = "rejected"
	StateFailed     State = "failed"
	// StateSkipped is reported for items never started because the caller shut down.
	StateSkipped State = "skipped"
	// StateDeleted is reported when a pull removed a local item that no longer exists remotely.
	StateDeleted State = "deleted"
)

func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateConflicted, StateRejected, StateFailed, StateSkipped, StateDeleted:
		return true
	}
	return false
}

// ItemResult is the terminal outcome of one item.
type ItemResult struct {
	Descriptor artifact.Descriptor
	State      State
	Err        error
	// MarkerPath is where conflicting content was written, if any.
	MarkerPath string
}

// Result aggregates the outcomes of one or more batches. Details only holds
// items that did not succeed.
type Result struct {
	Succeeded  int
	Conflicted int
	Rejected   int
	Failed     int
	Skipped    int
	Deleted    int
	Details    []ItemResult
}

func (r *Result) add(ir ItemResult) {
	switch ir.State {
	case StateSucceeded:
		r.Succeeded++
		return
	case StateDeleted:
		r.Deleted++
		return
	case StateConflicted:
		r.Conflicted++
	case StateRejected:
		r.Rejected++
	case StateSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Details = append(r.Details, ir)
}

// Merge adds the counts and details of other to r.
func (r *Result) Merge(other Result) {
	r.Succeeded += other.Succeeded
	r.Conflicted += other.Conflicted
	r.Rejected += other.Rejected
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	r.Deleted += other.Deleted
	r.Details = append(r.Details, other.Details...)
}

func (r Result) Total() int {
	return r.Succeeded + r.Conflicted + r.Rejected + r.Failed + r.Skipped + r.Deleted
}

// HasProblems reports whether any item needs the user's attention.
func (r Result) HasProblems() bool {
	return r.Failed+r.Conflicted+r.Rejected > 0
}
