package vehicle

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

// hub fans telemetry out to subscribers. A new subscriber first receives
// the latest value, then every later one. Sends never block the publisher.
type hub[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	last   T
	seen   bool
	closed bool
}

func (h *hub[T]) subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	if h.subs == nil {
		h.subs = make(map[chan T]struct{})
	}
	h.subs[ch] = struct{}{}
	if h.seen {
		ch <- h.last
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(ch)
	}()
	return ch
}

func (h *hub[T]) remove(ch chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last, h.seen = v, true
	for ch := range h.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

func (h *hub[T]) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
