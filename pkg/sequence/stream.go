package sequence

import (
	"context"
	"sync"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Listener receives status events synchronously, on the engine goroutine.
type Listener func(domain.StatusEvent)

const watchBuffer = 64

// Stream is the publish/subscribe status channel of a node.
type Stream struct {
	mu        sync.Mutex
	next      int
	listeners []subscription
}

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers l and returns a function that removes it.
func (s *Stream) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := s.next
	s.listeners = append(s.listeners, subscription{id: id, fn: l})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Watch returns a buffered channel of events that is closed when ctx is done.
// Events are dropped for slow consumers instead of blocking the engine.
func (s *Stream) Watch(ctx context.Context) <-chan domain.StatusEvent {
	ch := make(chan domain.StatusEvent, watchBuffer)

	var mu sync.Mutex
	closed := false
	unsubscribe := s.Subscribe(func(e domain.StatusEvent) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

func (s *Stream) publish(e domain.StatusEvent) {
	s.mu.Lock()
	subs := append([]subscription(nil), s.listeners...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(e)
	}
}
