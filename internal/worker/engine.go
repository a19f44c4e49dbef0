package worker

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/messaging"
)

const maxBackoff = 30 * time.Second

// HandlerRegistration binds an order event topic to its handler.
type HandlerRegistration struct {
	Topic   string
	Handler messaging.Handler
}

type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine runs the kitchen consumers that follow the order event stream. Each
// consumer restarts with exponential backoff when the client fails.
type Engine struct {
	client   messaging.Client
	logger   *zap.Logger
	enabled  bool
	workers  config.Worker
	handlers map[string]messaging.Handler

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewEngine keeps the first handler registered for a topic and ignores
// incomplete registrations.
func NewEngine(p Params) *Engine {
	handlers := make(map[string]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		switch {
		case r.Topic == "" || r.Handler == nil:
		case handlers[r.Topic] != nil:
			p.Logger.Warn("duplicate worker handler; keeping the first", zap.String("topic", r.Topic))
		default:
			handlers[r.Topic] = r.Handler
		}
	}

	return &Engine{
		client:   p.Client,
		logger:   p.Logger,
		enabled:  p.Config.Messaging.Enabled && p.Config.Messaging.Workers.Enabled,
		workers:  p.Config.Messaging.Workers,
		handlers: handlers,
	}
}

var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{OnStart: engine.start, OnStop: engine.stop})
	}),
)

func (e *Engine) start(context.Context) error {
	switch {
	case !e.enabled:
		e.logger.Info("worker engine disabled")
		return nil
	case len(e.handlers) == 0:
		e.logger.Info("worker engine has no handlers; skipping")
		return nil
	}

	// Consumers outlive the start context.
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.group = &errgroup.Group{}

	n := max(e.workers.Concurrency, 1)
	for id := range n {
		e.group.Go(func() error {
			e.consume(ctx, id)
			return nil
		})
	}
	e.logger.Info("worker engine started", zap.Int("workers", n), zap.Strings("topics", e.topics()))
	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.group.Wait()
	}()
	select {
	case <-done:
		e.logger.Info("worker engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// topics lists the topics that have a handler, sorted.
func (e *Engine) topics() []string {
	topics := lo.Keys(e.handlers)
	slices.Sort(topics)
	return topics
}

func (e *Engine) dispatch(id int) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		handler, ok := e.handlers[msg.Topic]
		if !ok {
			e.logger.Warn("no handler for topic", zap.String("topic", msg.Topic))
			return nil
		}
		e.logger.Debug("processing message", zap.String("topic", msg.Topic), zap.Int("worker", id), zap.Int64("offset", msg.Offset))
		return handler(ctx, msg)
	}
}

func (e *Engine) consume(ctx context.Context, id int) {
	backoff := e.workers.PollInterval
	if backoff <= 0 {
		backoff = time.Second
	}

	for ctx.Err() == nil {
		err := e.client.Consume(ctx, e.dispatch(id))
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Int("worker", id), zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxBackoff)
		case <-ctx.Done():
			return
		}
	}
}
