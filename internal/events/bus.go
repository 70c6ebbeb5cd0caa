package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tzhsiao/eew-go/internal/logging"
)

// WarningHandler consumes realtime warning events.
type WarningHandler func(ctx context.Context, ev WarningEvent)

// ReportHandler consumes confirmation report events.
type ReportHandler func(ctx context.Context, ev ReportEvent)

// Bus is a synchronous-registration, asynchronous-dispatch event bus.
// Handlers for one publish call are dispatched in registration order, each
// on its own goroutine; Publish never waits for handler completion.
// Delivery is in-process, at-most-once, and only to handlers registered at
// publish time.
type Bus struct {
	mu              sync.RWMutex
	warningHandlers []WarningHandler
	reportHandlers  []ReportHandler
	logger          *slog.Logger
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		logger: logging.ForService("events"),
	}
}

// SubscribeWarning registers a handler for warning events.
func (b *Bus) SubscribeWarning(h WarningHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warningHandlers = append(b.warningHandlers, h)
	b.logger.Debug("registered warning handler", "count", len(b.warningHandlers))
}

// SubscribeReport registers a handler for report events.
func (b *Bus) SubscribeReport(h ReportHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reportHandlers = append(b.reportHandlers, h)
	b.logger.Debug("registered report handler", "count", len(b.reportHandlers))
}

// PublishWarning dispatches a warning event to all registered handlers.
func (b *Bus) PublishWarning(ctx context.Context, ev WarningEvent) {
	b.mu.RLock()
	handlers := b.warningHandlers
	b.mu.RUnlock()

	for _, h := range handlers {
		go h(ctx, ev)
	}
}

// PublishReport dispatches a report event to all registered handlers.
func (b *Bus) PublishReport(ctx context.Context, ev ReportEvent) {
	b.mu.RLock()
	handlers := b.reportHandlers
	b.mu.RUnlock()

	for _, h := range handlers {
		go h(ctx, ev)
	}
}
