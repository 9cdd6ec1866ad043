// Package eventbus is an in-process publish/subscribe broker with at-least-once
// delivery. A handler that returns an error is re-delivered with exponential
// backoff until its subscription's retry cap is spent; then the event is dropped
// and logged. There is no ordering guarantee between deliveries.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ecodeclub/ekit/retry"
	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/go-mentoring-notifier/internal/pkg/id"
	"github.com/go-mentoring-notifier/internal/pkg/invocation"
	"github.com/go-mentoring-notifier/internal/pkg/metrics"
)

// Retry caps used by this service's subscriptions.
const (
	DefaultMaxRetries      = 3
	TokenCleanupMaxRetries = 10
)

var ErrClosed = errors.New("event bus closed")

// Handler consumes one delivery. A nil return acknowledges it; any error asks
// for a redelivery.
type Handler func(ctx context.Context, evt domain.DomainEvent) error

type subscription struct {
	name       string
	kind       domain.EventKind
	handler    Handler
	maxRetries int
}

// Option customises a subscription.
type Option func(*subscription)

// WithMaxRetries sets how many redeliveries follow the first failed attempt.
func WithMaxRetries(n int) Option {
	return func(s *subscription) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

type Config struct {
	Workers      int
	RetryInitial time.Duration
	RetryMax     time.Duration
}

type Bus struct {
	cfg     Config
	root    context.Context
	sem     chan struct{}
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	subs   map[domain.EventKind][]*subscription
	closed bool

	pending sync.WaitGroup
}

type delivery struct {
	sub     *subscription
	evt     domain.DomainEvent
	backoff retry.Strategy
}

func New(ctx context.Context, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Bus {
	if cfg.Workers < 1 {
		cfg.Workers = 8
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = time.Second
	}
	if cfg.RetryMax < cfg.RetryInitial {
		cfg.RetryMax = cfg.RetryInitial
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		cfg:     cfg,
		root:    context.WithoutCancel(ctx),
		sem:     make(chan struct{}, cfg.Workers),
		metrics: m,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[domain.EventKind][]*subscription),
	}
}

// Subscribe binds handler to every future event of kind.
func (b *Bus) Subscribe(kind domain.EventKind, name string, handler Handler, opts ...Option) {
	s := &subscription{name: name, kind: kind, handler: handler, maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[kind] = append(b.subs[kind], s)
}

// Publish enqueues one delivery per subscription bound to the payload's kind.
// It never blocks on handler execution.
func (b *Bus) Publish(_ context.Context, payload domain.Payload) (domain.DomainEvent, error) {
	if payload == nil {
		return domain.DomainEvent{}, fmt.Errorf("nil payload: %w", domain.ErrBadRequest)
	}
	evt := domain.DomainEvent{
		ID:              id.New(),
		Kind:            payload.Kind(),
		Payload:         payload,
		DeliveryAttempt: 1,
		PublishedAt:     b.now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return domain.DomainEvent{}, ErrClosed
	}
	subs := b.subs[evt.Kind]
	if len(subs) == 0 {
		b.logger.Warn("no subscription for event kind", "kind", evt.Kind, "event_id", evt.ID)
		return evt, nil
	}
	for _, s := range subs {
		strategy, err := retry.NewExponentialBackoffRetryStrategy(b.cfg.RetryInitial, b.cfg.RetryMax, int32(s.maxRetries))
		if err != nil {
			return domain.DomainEvent{}, fmt.Errorf("backoff for %s: %w", s.name, err)
		}
		b.pending.Add(1)
		go b.run(delivery{sub: s, evt: evt, backoff: strategy})
	}
	return evt, nil
}

func (b *Bus) run(d delivery) {
	b.sem <- struct{}{}
	err := b.invoke(d)
	<-b.sem

	kind := string(d.evt.Kind)
	if err == nil {
		b.metrics.BusDeliveries.WithLabelValues(kind, metrics.OutcomeOK).Inc()
		b.pending.Done()
		return
	}

	log := b.logger.With("kind", d.evt.Kind, "event_id", d.evt.ID,
		"subscription", d.sub.name, "attempt", d.evt.DeliveryAttempt)
	delay, ok := d.backoff.Next()
	if !ok || d.evt.DeliveryAttempt > d.sub.maxRetries {
		b.metrics.BusDeliveries.WithLabelValues(kind, metrics.OutcomeDropped).Inc()
		log.Error("dropping event after exhausting retries", "err", err)
		b.pending.Done()
		return
	}
	b.metrics.BusDeliveries.WithLabelValues(kind, metrics.OutcomeRetry).Inc()
	log.Warn("handler failed, scheduling redelivery", "err", err, "delay", delay)

	next := d
	next.evt.DeliveryAttempt++
	time.AfterFunc(delay, func() { b.run(next) })
}

func (b *Bus) invoke(d delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	ctx := invocation.WithID(b.root, InvocationID(d.evt))
	return d.sub.handler(ctx, d.evt)
}

// InvocationID is the identity of one delivery attempt. Redeliveries get a new one.
func InvocationID(evt domain.DomainEvent) string {
	return fmt.Sprintf("%s/%d", evt.ID, evt.DeliveryAttempt)
}

// Wait blocks until every published delivery has been acknowledged or dropped,
// including scheduled redeliveries.
func (b *Bus) Wait() {
	b.pending.Wait()
}

// Close stops accepting events and waits for in-flight deliveries or ctx expiry.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
