package events

import (
	"context"
	"sync"
	"time"

	domainevents "serendipity-backend/domain/events"

	"go.uber.org/zap"
)

// Handler processes a dispatched domain event
type Handler func(ctx context.Context, event domainevents.DomainEvent)

// Bus is an in-process publish/subscribe surface keyed by event type name.
// Handler failures never fail the publishing operation.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewBus creates a new event bus
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type name
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish dispatches an event to all handlers registered for its type
func (b *Bus) Publish(ctx context.Context, event domainevents.DomainEvent) {
	b.mu.RLock()
	handlers := b.handlers[event.GetEventType()]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	start := time.Now()
	for _, handler := range handlers {
		handler(ctx, event)
	}

	b.logger.Debug("Event dispatched",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Int("handlers", len(handlers)),
		zap.Duration("duration", time.Since(start)))
}

// PublishBatch dispatches multiple events in order
func (b *Bus) PublishBatch(ctx context.Context, events []domainevents.DomainEvent) {
	for _, event := range events {
		b.Publish(ctx, event)
	}
}
