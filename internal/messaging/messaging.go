package messaging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
)

// Message is one order event read from the bus. Key and Value are owned by
// the receiver.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes one message. A non-nil error leaves the message
// uncommitted.
type Handler func(context.Context, Message) error

// Client publishes to and consumes from the orders topic.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	// Consume blocks, feeding messages to handler until ctx ends.
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

var Module = fx.Provide(NewClient)

// NewClient returns a kafka client, or a client that drops everything when
// messaging is off.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	m := cfg.Messaging
	if !m.Enabled || m.Driver == "noop" {
		logger.Info("messaging disabled; order events are dropped", zap.String("topic", m.Kafka.Topic))
		return discard{topic: m.Kafka.Topic}, nil
	}
	if m.Driver != "kafka" {
		return nil, fmt.Errorf("unsupported messaging driver: %s", m.Driver)
	}

	client := newKafkaClient(m, logger)
	lc.Append(fx.StopHook(client.close))
	return client, nil
}

type discard struct {
	topic string
}

func (d discard) Publish(context.Context, []byte, []byte) error { return nil }

func (d discard) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d discard) Topic() string { return d.topic }
