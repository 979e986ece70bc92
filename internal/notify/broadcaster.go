package notify

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

// Listener is called once per cart-changed signal. It runs on the publisher's
// goroutine and must not block.
type Listener = func()

// Sink receives a copy of every signal, e.g. to fan it out to other processes.
type Sink interface {
	CartChanged(ctx context.Context, sessionID string) error
}

// Broadcaster is the per-session "cart changed" channel. Signals carry no payload;
// listeners re-fetch whatever they display.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[uint64]Listener
	nextID    uint64

	sessionID string
	sink      Sink
	logger    *zap.Logger
}

func NewBroadcaster(sessionID string, sink Sink, l *zap.Logger) *Broadcaster {
	return &Broadcaster{
		listeners: make(map[uint64]Listener),
		sessionID: sessionID,
		sink:      sink,
		logger:    logger.OrNop(l),
	}
}

// Subscribe registers fn and returns a function that removes it again.
func (b *Broadcaster) Subscribe(fn Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish notifies every listener and the sink. Sink errors are logged, never returned.
func (b *Broadcaster) Publish() {
	b.Notify()

	if b.sink != nil {
		if err := b.sink.CartChanged(context.Background(), b.sessionID); err != nil {
			b.logger.Warn("failed to forward cart changed signal",
				zap.String("session_id", b.sessionID),
				zap.Error(err))
		}
	}
}

// Notify calls the local listeners only. Used for signals that arrived from the sink.
func (b *Broadcaster) Notify() {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
