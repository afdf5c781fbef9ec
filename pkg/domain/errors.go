package domain

import "errors"

// Configuration errors. The engine never returns these from Begin or CompleteStep:
// it logs them and ends the run, exposing the cause through Err() and Snapshot.Reason.
var (
	// ErrMissingEntryStep is reported when a branching sequence has no entry step.
	ErrMissingEntryStep = errors.New("entry step is not set")

	// ErrMissingTarget is reported when the matching transition has no target step.
	ErrMissingTarget = errors.New("transition has no target step")

	// ErrDeadEnd is reported when no outgoing transition of the current step evaluates true.
	ErrDeadEnd = errors.New("no transition matched")
)

var (
	// ErrUnsupportedComparison is returned when an operator is unknown or not valid for a kind.
	ErrUnsupportedComparison = errors.New("unsupported comparison")

	// ErrVariableKind is returned when a variable is used with a kind it was not declared with.
	ErrVariableKind = errors.New("variable kind mismatch")

	// ErrUnknownVariable is returned when a strict resolver cannot find a variable.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrRunNotFound is returned when a run ID cannot be found in a store or manager.
	ErrRunNotFound = errors.New("run not found")

	// ErrDefinitionNotFound is returned when a loader has no definition with the requested name.
	ErrDefinitionNotFound = errors.New("definition not found")

	// ErrRunExists is returned when creating a run whose ID is already in use.
	ErrRunExists = errors.New("run already exists")
)
