package domain

import "time"

// EndReason records why a run reached Completed.
type EndReason string

const (
	ReasonNone          EndReason = ""
	ReasonFinished      EndReason = "finished"       // linear sequence ran past its last step
	ReasonTerminal      EndReason = "terminal"       // branching step without outgoing transitions
	ReasonMissingEntry  EndReason = "missing_entry"  // branching sequence without entry step
	ReasonMissingTarget EndReason = "missing_target" // matched transition without target
	ReasonDeadEnd       EndReason = "dead_end"       // no transition matched

	// Reported to OnRunEnd hooks only, for runs dropped before reaching Completed.
	ReasonReset     EndReason = "reset"
	ReasonRestarted EndReason = "restarted"
)

// Err maps soft configuration failures to their sentinel error. Normal ends return nil.
func (r EndReason) Err() error {
	switch r {
	case ReasonMissingEntry:
		return ErrMissingEntryStep
	case ReasonMissingTarget:
		return ErrMissingTarget
	case ReasonDeadEnd:
		return ErrDeadEnd
	}
	return nil
}

// StepState is the runtime status of one step inside a snapshot.
type StepState struct {
	ID            string `json:"id"`
	Status        Status `json:"status"`
	FinishPending bool   `json:"finish_pending,omitempty"`
}

// Snapshot is the mutable runtime-state record of a single run.
// The graph definition is not part of it, so one definition can back many snapshots.
type Snapshot struct {
	RunID        string      `json:"run_id"`
	Sequence     string      `json:"sequence"`
	Kind         Kind        `json:"kind"`
	Status       Status      `json:"status"`
	CurrentStep  string      `json:"current_step,omitempty"`
	CurrentIndex int         `json:"current_index"`
	Steps        []StepState `json:"steps"`
	Reason       EndReason   `json:"reason,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Terminated reports whether the run has ended.
func (s *Snapshot) Terminated() bool {
	return s.Status == StatusCompleted
}
