package app

import (
	"context"
	"sync"

	"codemaster/internal/domain"
	"codemaster/internal/metrics"
)

const subscriberBuffer = 8

// hub fans events out to live subscribers.
type hub struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[chan domain.Event]struct{})}
}

func (h *hub) subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	metrics.LiveSubscribers.Inc()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
			metrics.LiveSubscribers.Dec()
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// broadcast never blocks: a full subscriber loses its oldest pending event.
func (h *hub) broadcast(evt domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- evt
		}
	}
}

// Subscribe returns a channel of progress events. The caller must invoke the
// returned cancel function; it is also called when ctx is done.
func (s *QuizService) Subscribe(ctx context.Context) (<-chan domain.Event, func()) {
	ch, cancel := s.hub.subscribe()
	if ctx.Done() == nil {
		return ch, cancel
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel
}
