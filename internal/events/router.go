package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the default channel buffer size for subscribers.
const DefaultBufferSize = 100

// DefaultCriticalWait bounds how long Emit waits for room before dropping a
// critical event.
const DefaultCriticalWait = 250 * time.Millisecond

// Critical reports whether event must not be dropped just because a
// subscriber is momentarily full. Beats and tempo changes are superseded by
// the next one of their kind; state, session, settings and error events are
// not.
func Critical(event Event) bool {
	switch event.Type() {
	case EventBeat, EventTempoChanged:
		return false
	}
	return true
}

// Router fans events out from producers (the metronome, the controller) to
// any number of subscribers. Beats never block: a full subscriber drops them,
// so a slow view can never stall the beat loop. Critical events wait up to
// criticalWait for room first.
type Router struct {
	subscribers  []chan Event
	bufferSize   int
	criticalWait time.Duration
	mu           sync.RWMutex
	closed       bool
	dropped      atomic.Int64
	logger       *slog.Logger
}

// NewRouter creates a new event router with the specified default buffer size.
// If bufferSize is 0 or negative, DefaultBufferSize is used.
func NewRouter(bufferSize int) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Router{
		bufferSize:   bufferSize,
		criticalWait: DefaultCriticalWait,
		logger:       slog.Default(),
	}
}

// SetLogger replaces the logger used for drop warnings.
func (r *Router) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Emit publishes an event to all subscribers.
// Emit is safe to call concurrently and after Close (becomes a no-op).
func (r *Router) Emit(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	critical := Critical(event)
	// One deadline covers every subscriber of this emit.
	var deadline *time.Timer
	expired := false
	for _, ch := range r.subscribers {
		select {
		case ch <- event:
			continue
		default:
		}

		if critical && !expired {
			if deadline == nil {
				deadline = time.NewTimer(r.criticalWait)
				defer deadline.Stop()
			}
			select {
			case ch <- event:
				continue
			case <-deadline.C:
				expired = true
			}
		}

		r.dropped.Add(1)
		r.logger.Warn("event dropped: subscriber channel full",
			"event_type", event.Type(),
			"source", event.Source(),
			"critical", critical,
		)
	}
}

// Dropped returns how many deliveries were dropped because a subscriber was full.
func (r *Router) Dropped() int64 {
	return r.dropped.Load()
}

// Subscribe returns a channel that receives all emitted events.
// The channel has the router's default buffer size.
// The returned channel is closed when the router is closed.
func (r *Router) Subscribe() <-chan Event {
	return r.SubscribeBuffered(r.bufferSize)
}

// SubscribeBuffered returns a channel with the specified buffer size.
func (r *Router) SubscribeBuffered(size int) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, size)
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// It is safe to call with a channel that was never subscribed or already unsubscribed.
func (r *Router) Unsubscribe(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subscribers {
		if sub == ch {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes all subscriber channels and marks the router as closed.
// Close is safe to call multiple times.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.closed = true
	for _, ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = nil
}
