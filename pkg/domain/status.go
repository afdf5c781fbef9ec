package domain

import "fmt"

// Status is the lifecycle status of a step or a sequence.
// Within one activation cycle it only moves Inactive -> Started -> Completed.
type Status int

const (
	StatusInactive Status = iota
	StatusStarted
	StatusCompleted
)

var statusNames = [...]string{"inactive", "started", "completed"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText encodes the status by name so snapshots stay readable in stores.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus converts a status name into a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusInactive, fmt.Errorf("unknown status %q", name)
}

// Kind identifies the type of node emitting an event or described by a definition.
type Kind string

const (
	KindStep      Kind = "step"
	KindLinear    Kind = "linear"
	KindBranching Kind = "branching"
)
