package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
)

const fetchRetryDelay = time.Second

type kafkaClient struct {
	topic  string
	writer *kafka.Writer
	reader *kafka.Reader
	logger *zap.Logger
}

func newKafkaClient(m config.Messaging, logger *zap.Logger) *kafkaClient {
	k := m.Kafka
	return &kafkaClient{
		topic:  k.Topic,
		logger: logger,
		writer: &kafka.Writer{
			Addr:  kafka.TCP(k.Brokers...),
			Topic: k.Topic,
			// Events for one table share a key and therefore a partition.
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Logger:       kafkaLogger{logger: logger},
			ErrorLogger:  kafkaLogger{logger: logger, errors: true},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        k.Brokers,
			GroupID:        m.ConsumerGroup,
			Topic:          k.Topic,
			MinBytes:       k.MinBytes,
			MaxBytes:       k.MaxBytes,
			CommitInterval: k.CommitInterval,
			Dialer:         &kafka.Dialer{Timeout: k.ConnectTimeout, ClientID: k.ClientID},
		}),
	}
}

func (k *kafkaClient) Topic() string { return k.topic }

func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

// Consume commits a message only after handler accepted it. Fetch errors are
// retried after a pause; only the end of ctx stops the loop.
func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			k.logger.Error("kafka fetch failed", zap.Error(err))
			select {
			case <-time.After(fetchRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := handler(ctx, fromKafka(msg)); err != nil {
			k.logger.Error("message handler failed", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		if err := k.reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			k.logger.Warn("kafka commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (k *kafkaClient) close(context.Context) error {
	k.logger.Info("closing kafka client")
	return errors.Join(k.writer.Close(), k.reader.Close())
}

func fromKafka(msg kafka.Message) Message {
	return Message{
		Topic:   msg.Topic,
		Key:     append([]byte(nil), msg.Key...),
		Value:   append([]byte(nil), msg.Value...),
		Headers: headerMap(msg.Headers),
		Offset:  msg.Offset,
		Time:    msg.Time,
	}
}

func headerMap(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Key] = string(h.Value)
	}
	return m
}

// kafkaLogger routes kafka-go's printf logging into zap. The writer's error
// log is noisy during broker restarts, so it goes to warn.
type kafkaLogger struct {
	logger *zap.Logger
	errors bool
}

func (k kafkaLogger) Printf(msg string, args ...any) {
	if k.errors {
		k.logger.Sugar().Warnf(msg, args...)
		return
	}
	k.logger.Sugar().Debugf(msg, args...)
}
