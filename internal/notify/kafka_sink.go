package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventTypeCartChanged = "cart_changed"

	headerEventType = "event_type"
	headerOrigin    = "origin"
)

type cartChangedEvent struct {
	SessionID  string    `json:"session_id"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurred_at"`
}

// KafkaSink forwards cart-changed signals to a topic, keyed by session id.
// origin names the publishing instance so it can skip its own events.
type KafkaSink struct {
	writer *kafka.Writer
	origin string
	logger *zap.Logger
}

func NewKafkaSink(topic, origin string, l *zap.Logger, brokers ...string) *KafkaSink {
	l = logger.OrNop(l)
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				l.Warn("failed to publish cart changed events",
					zap.Int("count", len(messages)),
					zap.Error(err))
			}
		},
	}
	return &KafkaSink{writer: w, origin: origin, logger: l}
}

func (s *KafkaSink) CartChanged(ctx context.Context, sessionID string) error {
	payload, err := json.Marshal(cartChangedEvent{
		SessionID:  sessionID,
		Origin:     s.origin,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(sessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(EventTypeCartChanged)},
			{Key: headerOrigin, Value: []byte(s.origin)},
		},
	}
	return s.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
