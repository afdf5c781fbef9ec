package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStatus     EventType = "status"
	EventTransition EventType = "transition"
	EventRunEnd     EventType = "run_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Sequence  string    `json:"sequence,omitempty"`
}

// StatusEvent is published every time a node raises a status.
type StatusEvent struct {
	EventBase
	Node   string `json:"node"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
}

// TransitionEvent is emitted when a branching sequence takes a transition.
type TransitionEvent struct {
	EventBase
	From   string `json:"from"`
	To     string `json:"to"`
	Index  int    `json:"index"`
	Notify string `json:"notify,omitempty"`
}

// RunEvent is emitted once per run ID: when the run reaches Completed, or when
// Reset or a new Begin drops it first.
type RunEvent struct {
	EventBase
	Reason EndReason `json:"reason"`
	Err    string    `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the engine goroutine and must not call back into the engine.
type LifecycleHooks struct {
	OnStatus     func(context.Context, *StatusEvent)
	OnTransition func(context.Context, *TransitionEvent)
	OnRunEnd     func(context.Context, *RunEvent)
}

// ComposeHooks fans every callback out to all given hook sets, in order.
func ComposeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStatus: func(ctx context.Context, e *StatusEvent) {
			for _, h := range hooks {
				if h.OnStatus != nil {
					h.OnStatus(ctx, e)
				}
			}
		},
		OnTransition: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range hooks {
				if h.OnTransition != nil {
					h.OnTransition(ctx, e)
				}
			}
		},
		OnRunEnd: func(ctx context.Context, e *RunEvent) {
			for _, h := range hooks {
				if h.OnRunEnd != nil {
					h.OnRunEnd(ctx, e)
				}
			}
		},
	}
}
