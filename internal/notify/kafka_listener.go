package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DeliverFunc hands a remote cart-changed signal to the local session, if any.
type DeliverFunc func(sessionID string)

const defaultRetryDelay = time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaListener reads cart-changed events published by other instances. Each
// instance uses its own consumer group so every instance sees every event.
type KafkaListener struct {
	reader     messageReader
	origin     string
	deliver    DeliverFunc
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewKafkaListener(topic, origin string, deliver DeliverFunc, l *zap.Logger, brokers ...string) *KafkaListener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "storefront-" + origin,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})
	return &KafkaListener{
		reader:     reader,
		origin:     origin,
		deliver:    deliver,
		retryDelay: defaultRetryDelay,
		logger:     logger.OrNop(l),
	}
}

// Run delivers events until ctx is done or the reader is closed. Read errors
// are retried after retryDelay.
func (k *KafkaListener) Run(ctx context.Context) {
	for {
		m, err := k.reader.ReadMessage(ctx)
		if err == nil {
			k.handle(m)
			continue
		}
		if ctx.Err() != nil || errors.Is(err, io.EOF) {
			return
		}
		k.logger.Warn("error reading cart changed event",
			zap.Duration("retry_in", k.retryDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(k.retryDelay):
		}
	}
}

func (k *KafkaListener) Close() {
	if err := k.reader.Close(); err != nil {
		k.logger.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (k *KafkaListener) handle(m kafka.Message) {
	for _, h := range m.Headers {
		if h.Key == headerEventType && string(h.Value) != EventTypeCartChanged {
			return
		}
	}

	var event cartChangedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		k.logger.Warn("error parsing cart changed event", zap.Error(err))
		return
	}
	if event.SessionID == "" {
		event.SessionID = string(m.Key)
	}
	if event.SessionID == "" || event.Origin == k.origin {
		return
	}
	k.deliver(event.SessionID)
}
