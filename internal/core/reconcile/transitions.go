package reconcile

import "fmt"

// RunState represents the pipeline stage of a reconciliation run.
type RunState string

const (
	StateLoaded        RunState = "LOADED"
	StateCountMatch    RunState = "COUNT_MATCH"
	StateCountMismatch RunState = "COUNT_MISMATCH"
	StateCollectMissed RunState = "COLLECT_MISSED"
	StateMerge         RunState = "MERGE"
	StateAssigned      RunState = "ASSIGNED"
	StateDone          RunState = "DONE"
	StateAborted       RunState = "ABORTED"
)

var transitions = map[RunState][]RunState{
	StateLoaded:        {StateCountMatch, StateCountMismatch, StateAborted},
	StateCountMatch:    {StateAssigned, StateAborted},
	StateCountMismatch: {StateCollectMissed, StateAborted},
	StateCollectMissed: {StateCollectMissed, StateMerge, StateAborted},
	StateMerge:         {StateAssigned, StateAborted},
	StateAssigned:      {StateDone, StateAborted},
}

// CanTransition reports whether a run may move from one state to another.
func CanTransition(from, to RunState) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s RunState) IsTerminal() bool {
	return s == StateDone || s == StateAborted
}

// Run tracks the state of a single reconciliation.
type Run struct {
	State   RunState
	History []RunState
}

// NewRun returns a run in the LOADED state.
func NewRun() *Run {
	return &Run{State: StateLoaded, History: []RunState{StateLoaded}}
}

// Advance moves the run to the next state.
func (r *Run) Advance(to RunState) error {
	if !CanTransition(r.State, to) {
		return fmt.Errorf("invalid run transition %s -> %s", r.State, to)
	}
	r.State = to
	r.History = append(r.History, to)
	return nil
}

// Abort moves the run to ABORTED from any non-terminal state.
func (r *Run) Abort() {
	if r.State.IsTerminal() {
		return
	}
	r.State = StateAborted
	r.History = append(r.History, StateAborted)
}
