package app

import "sync"

// hub fans snapshots out to subscribers. Slow subscribers only ever see the
// latest value: a full buffer drops its stale entry before the new one is sent.
type hub[T any] struct {
	mu          sync.Mutex
	subscribers map[chan T]struct{}
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subscribers: make(map[chan T]struct{})}
}

func (h *hub[T]) subscribe(initial T) (<-chan T, func()) {
	ch := make(chan T, 8)
	ch <- initial

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}
