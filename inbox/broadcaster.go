package inbox

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// subscriberBuffer is how many events a stream may fall behind before new ones are dropped.
const subscriberBuffer = 32

type subscriber struct {
	username string
	events   chan Event
}

// Broadcaster keeps the open streams per username.
type Broadcaster struct {
	mu      sync.RWMutex
	streams map[string]map[string]*subscriber // username -> subscriber id -> subscriber
	closed  bool
	logger  *zap.Logger
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		streams: make(map[string]map[string]*subscriber),
		logger:  logger,
	}
}

// Subscribe opens a stream for username. The caller must Unsubscribe with the
// returned id when done; the channel is closed at that point.
func (b *Broadcaster) Subscribe(username string) (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	sub := &subscriber{username: username, events: make(chan Event, subscriberBuffer)}
	if b.closed {
		close(sub.events)
		return id, sub.events
	}
	if b.streams[username] == nil {
		b.streams[username] = make(map[string]*subscriber)
	}
	b.streams[username][id] = sub
	b.logger.Debug("inbox stream opened", zap.String("username", username), zap.String("stream_id", id))
	return id, sub.events
}

// Unsubscribe removes the stream and closes its channel. Unknown ids are ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for username, subs := range b.streams {
		sub, ok := subs[id]
		if !ok {
			continue
		}
		close(sub.events)
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.streams, username)
		}
		b.logger.Debug("inbox stream closed", zap.String("username", username), zap.String("stream_id", id))
		return
	}
}

// Publish hands event to every open stream of username and returns how many
// streams accepted it. It never blocks.
func (b *Broadcaster) Publish(username string, event Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for id, sub := range b.streams[username] {
		select {
		case sub.events <- event:
			delivered++
		default:
			b.logger.Warn("inbox stream is full, dropping event",
				zap.String("username", username), zap.String("stream_id", id))
		}
	}
	return delivered
}

// Close ends every open stream. Streams opened afterwards are closed immediately.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for username, subs := range b.streams {
		for _, sub := range subs {
			close(sub.events)
		}
		delete(b.streams, username)
	}
}

// Subscribers reports how many streams username currently has open.
func (b *Broadcaster) Subscribers(username string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams[username])
}
