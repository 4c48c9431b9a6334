package notify

import "sync"

// subscriberBuffer is the channel buffer of each subscriber.
const subscriberBuffer = 100

// hub fans values out to subscribers.
//
// Sends are non-blocking: if a subscriber's buffer is full, the value is
// dropped for that subscriber rather than blocking the publisher.
type hub[T any] struct {
	mu          sync.RWMutex
	subscribers map[chan T]struct{}
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subscribers: make(map[chan T]struct{})}
}

func (h *hub[T]) subscribe() <-chan T {
	ch := make(chan T, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

func (h *hub[T]) unsubscribe(ch <-chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for subCh := range h.subscribers {
		if subCh == ch {
			delete(h.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (h *hub[T]) publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- v:
		default:
			// subscriber is slow, drop the value
		}
	}
}

func (h *hub[T]) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
