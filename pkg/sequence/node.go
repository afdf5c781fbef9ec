package sequence

import (
	"context"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
)

var now = time.Now

// node is the status-bearing part shared by steps and containers.
type node struct {
	name   string
	kind   domain.Kind
	status domain.Status
	stream Stream
	rt     *shared
}

// Name returns the node identifier: the step ID or the sequence name.
func (n *node) Name() string { return n.name }

// Kind reports whether the node is a step, a linear or a branching sequence.
func (n *node) Kind() domain.Kind { return n.kind }

// Status returns the current status.
func (n *node) Status() domain.Status { return n.status }

// Subscribe registers a listener for status changes of this node.
func (n *node) Subscribe(l Listener) func() { return n.stream.Subscribe(l) }

// Watch streams status changes of this node until ctx is done.
func (n *node) Watch(ctx context.Context) <-chan domain.StatusEvent { return n.stream.Watch(ctx) }

// raise updates the status and publishes it.
func (n *node) raise(status domain.Status) {
	n.status = status

	e := domain.StatusEvent{
		EventBase: domain.EventBase{Timestamp: now(), Type: domain.EventStatus},
		Node:      n.name,
		Kind:      n.kind,
		Status:    status,
	}
	if rt := n.rt; rt != nil {
		e.EventBase = rt.eventBase(domain.EventStatus)
		if rt.hooks.OnStatus != nil {
			rt.hooks.OnStatus(rt.hookCtx(), &e)
		}
	}
	n.stream.publish(e)
}

// end finishes the run of a container.
func (n *node) end(reason domain.EndReason, step string) {
	rt := n.rt
	rt.reason = reason

	log := rt.logger.With("run_id", rt.runID)
	if step != "" {
		log = log.With("step", step)
	}
	if err := reason.Err(); err != nil {
		log.Warn("sequence ended early", "reason", reason, "error", err)
	} else {
		log.Info("sequence completed", "reason", reason)
	}

	n.raise(domain.StatusCompleted)

	if rt.hooks.OnRunEnd != nil {
		e := &domain.RunEvent{EventBase: rt.eventBase(domain.EventRunEnd), Reason: reason}
		if err := reason.Err(); err != nil {
			e.Err = err.Error()
		}
		rt.hooks.OnRunEnd(rt.hookCtx(), e)
	}
	rt.cancel()
}
