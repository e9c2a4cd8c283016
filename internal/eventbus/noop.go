package eventbus

import (
	"context"
	"log/slog"
)

// FallbackBus is the inert implementation selected when the broker is
// unreachable at startup. Publishes are logged and discarded; subscriptions
// are recorded in a registry but never invoked, which keeps callers wired
// identically to the resilient path.
type FallbackBus struct {
	log *slog.Logger
	reg *registry
}

func NewFallbackBus(log *slog.Logger) *FallbackBus {
	return &FallbackBus{log: log, reg: newRegistry()}
}

func (b *FallbackBus) Publish(_ context.Context, routingKey string, _ any) error {
	publishDroppedTotal.Inc()
	b.log.Warn("event discarded, running on fallback bus", "routing_key", routingKey)
	return nil
}

func (b *FallbackBus) Subscribe(routingKey string, h Handler) {
	b.reg.add(routingKey, h)
	b.log.Warn("subscription recorded on fallback bus, handler will not fire", "routing_key", routingKey)
}
