package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
)

var ErrHubClosed = errors.New("hub closed")

// backlogWarnEvery is how often a growing subscriber backlog is logged.
const backlogWarnEvery = 1024

// subscriber is an unbounded mailbox drained by one goroutine. Publishers never
// block on it and nothing is dropped.
type subscriber struct {
	mu    sync.Mutex
	queue []Message
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSubscriber() *subscriber {
	return &subscriber{wake: make(chan struct{}, 1), done: make(chan struct{})}
}

// push queues m and returns the backlog length.
func (s *subscriber) push(m Message) int {
	s.mu.Lock()
	s.queue = append(s.queue, m)
	n := len(s.queue)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return n
}

func (s *subscriber) drain() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue
	s.queue = nil
	return q
}

func (s *subscriber) stop() { s.once.Do(func() { close(s.done) }) }

// Hub fans messages out to in-process subscribers. Each subscriber is drained by
// its own goroutine, so delivery is asynchronous but ordered per subscriber and
// lossless.
type Hub struct {
	mu     sync.RWMutex
	log    *logger.Logger
	subs   map[string]map[*subscriber]bool
	closed bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:  logger.OrNop(log).With("component", "RealtimeHub"),
		subs: make(map[string]map[*subscriber]bool),
	}
}

func (h *Hub) Publish(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Channel) == "" {
		return errors.New("message channel required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for s := range h.subs[msg.Channel] {
		if n := s.push(msg); n%backlogWarnEvery == 0 {
			h.log.Warn("slow subscriber backlog", "channel", msg.Channel, "queued", n)
		}
	}
	return nil
}

// Subscribe calls fn for every message published on channel until ctx is done or
// the returned cancel func is called.
func (h *Hub) Subscribe(ctx context.Context, channel string, fn func(Message)) (func(), error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("channel required")
	}
	if fn == nil {
		return nil, errors.New("callback required")
	}

	s := newSubscriber()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*subscriber]bool)
	}
	h.subs[channel][s] = true
	h.mu.Unlock()

	cancel := func() { h.remove(channel, s) }

	go func() {
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-s.done:
				return
			case <-s.wake:
				for _, m := range s.drain() {
					select {
					case <-s.done:
						return
					default:
					}
					fn(m)
				}
			}
		}
	}()

	return cancel, nil
}

func (h *Hub) remove(channel string, s *subscriber) {
	h.mu.Lock()
	if subs, ok := h.subs[channel]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.subs, channel)
		}
	}
	h.mu.Unlock()
	s.stop()
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, subs := range h.subs {
		for s := range subs {
			s.stop()
		}
	}
	h.subs = make(map[string]map[*subscriber]bool)
	return nil
}
