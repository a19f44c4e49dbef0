package order

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/entity"
	"github.com/Additional-Code/restaurant/internal/messaging"
)

// Event types carried on the orders topic.
const (
	EventOrderPlaced  = "order.placed"
	EventOrderDeleted = "order.deleted"
)

// Event is the envelope published for every order change.
type Event struct {
	Type    string             `json:"type"`
	Placed  *OrderPlacedEvent  `json:"placed,omitempty"`
	Deleted *OrderDeletedEvent `json:"deleted,omitempty"`
}

// OrderPlacedEvent is emitted when a new order is persisted.
type OrderPlacedEvent struct {
	ID              uuid.UUID `json:"id"`
	TableNo         int32     `json:"table_no"`
	Item            string    `json:"item"`
	Quantity        int32     `json:"quantity"`
	PreparationTime int32     `json:"preparation_time"`
	PlacedAt        time.Time `json:"placed_at"`
}

// OrderDeletedEvent is emitted when orders are removed.
type OrderDeletedEvent struct {
	IDs       []uuid.UUID `json:"ids"`
	DeletedAt time.Time   `json:"deleted_at"`
}

func (s *Service) publishPlaced(ctx context.Context, order *entity.Order) {
	s.publish(ctx, fmt.Sprintf("table-%d", order.TableNo), Event{
		Type: EventOrderPlaced,
		Placed: &OrderPlacedEvent{
			ID:              order.ID,
			TableNo:         order.TableNo,
			Item:            order.Item,
			Quantity:        order.Quantity,
			PreparationTime: order.PreparationTime,
			PlacedAt:        order.PlacedAt,
		},
	})
}

func (s *Service) publishDeleted(ctx context.Context, ids []uuid.UUID) {
	s.publish(ctx, ids[0].String(), Event{
		Type:    EventOrderDeleted,
		Deleted: &OrderDeletedEvent{IDs: ids, DeletedAt: s.clock.Now()},
	})
}

// publish hands the event to the outbox; it never waits for the broker.
func (s *Service) publish(ctx context.Context, key string, event Event) {
	if s.outbox == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	s.outbox.enqueue(ctx, envelope{kind: event.Type, key: []byte(key), value: payload})
}

type envelope struct {
	ctx   context.Context
	kind  string
	key   []byte
	value []byte
	// barrier is closed once every envelope queued before it was handled.
	barrier chan struct{}
}

// outbox sends order events from a single goroutine, in the order they were
// queued. A full queue drops the event rather than stall the caller.
type outbox struct {
	publisher messaging.Client
	logger    *zap.Logger
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan envelope
	done   chan struct{}
}

const defaultPublishTimeout = 5 * time.Second

func newOutbox(publisher messaging.Client, logger *zap.Logger, buffer int, timeout time.Duration) *outbox {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	o := &outbox{
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
		queue:     make(chan envelope, max(buffer, 1)),
		done:      make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) run() {
	defer close(o.done)
	for env := range o.queue {
		if env.barrier != nil {
			close(env.barrier)
			continue
		}
		o.send(env)
	}
}

func (o *outbox) send(env envelope) {
	ctx, cancel := context.WithTimeout(env.ctx, o.timeout)
	defer cancel()
	if err := o.publisher.Publish(ctx, env.key, env.value); err != nil {
		o.logger.Error("publish order event", zap.String("type", env.kind), zap.ByteString("key", env.key), zap.Error(err))
	}
}

// enqueue keeps the caller's trace values but not its deadline: the request
// may be long gone by the time the event is sent.
func (o *outbox) enqueue(ctx context.Context, env envelope) {
	env.ctx = context.WithoutCancel(ctx)

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.logger.Warn("order event dropped; outbox closed", zap.String("type", env.kind))
		return
	}
	select {
	case o.queue <- env:
	default:
		o.logger.Warn("order event dropped; outbox full", zap.String("type", env.kind), zap.Int("capacity", cap(o.queue)))
	}
}

// flush waits until every event queued so far has been handled.
func (o *outbox) flush(ctx context.Context) error {
	barrier := make(chan struct{})

	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return nil
	}
	select {
	case o.queue <- envelope{barrier: barrier}:
		o.mu.RUnlock()
	case <-ctx.Done():
		o.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting events and drains the queue.
func (o *outbox) close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
