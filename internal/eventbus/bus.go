// Package eventbus provides the publish/subscribe transport for domain
// events. The resilient implementation rides one AMQP connection with a
// single durable direct exchange and one durable queue per routing key;
// a no-op fallback keeps the process alive when the broker is down at
// startup.
package eventbus

import (
	"context"
	"sync"
)

// Handler processes one delivered event body. Returning an error causes the
// delivery to be negatively acknowledged and requeued, so handlers must be
// idempotent or tolerate redelivery.
type Handler func(ctx context.Context, body []byte) error

// Bus is the publish/subscribe contract domain services depend on.
// Publish never surfaces broker connectivity problems to callers.
type Bus interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Subscribe(routingKey string, h Handler)
}

// registry keeps routing-key handler lists independent of connection state.
// Handler identity is stable across reconnects; only the server-side
// consumer binding is recreated.
type registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string][]Handler)}
}

// add records a handler and reports whether it is the first one for the key.
func (r *registry) add(key string, h Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = append(r.handlers[key], h)
	return len(r.handlers[key]) == 1
}

func (r *registry) get(key string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.handlers[key]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

func (r *registry) keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	return keys
}
