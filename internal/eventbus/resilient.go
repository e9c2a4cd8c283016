package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

var errNotConnected = errors.New("broker not connected")

// ResilientBus owns the real broker connection. Subscriptions are recorded
// in a registry that outlives the connection; after every reconnect the
// server-side consumers are recreated from that registry, so application
// code never re-subscribes.
type ResilientBus struct {
	broker   broker
	exchange string
	health   *HealthMonitor
	log      *slog.Logger
	poll     time.Duration

	// mu guards the connection handle, the connecting flag, and the set
	// of active consumers. Holding it prevents duplicate concurrent
	// reconnect attempts.
	mu         sync.Mutex
	ch         brokerChannel
	connecting bool
	consumers  map[string]bool

	reg       *registry
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewResilientBus builds the bus. poll is the retry period used when a
// subscription arrives before the connection is up.
func NewResilientBus(b broker, exchange string, health *HealthMonitor, poll time.Duration, log *slog.Logger) *ResilientBus {
	return &ResilientBus{
		broker:   b,
		exchange: exchange,
		health:   health,
		log:      log,
		poll:     poll,
		reg:      newRegistry(),
		done:     make(chan struct{}),
	}
}

// Start attempts the initial connection and begins listening for health
// recovery. A failed initial connect is not fatal; the bus reconnects when
// the health monitor reports the broker reachable again.
func (b *ResilientBus) Start(ctx context.Context) {
	if err := b.connect(ctx); err != nil {
		b.log.Warn("initial broker connect failed, waiting for health recovery", "error", err)
	}

	changes := b.health.Subscribe()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.done:
				return
			case <-ctx.Done():
				return
			case healthy := <-changes:
				if !healthy || b.connected() {
					continue
				}
				if err := b.connect(ctx); err != nil {
					b.log.Warn("broker reconnect failed", "error", err)
				}
			}
		}
	}()
}

// Publish sends one persistent JSON message. Broker unavailability is never
// surfaced to the caller: the message is dropped with a warning and nil is
// returned. Only marshalling problems produce an error.
func (b *ResilientBus) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", routingKey, err)
	}

	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	if ch == nil {
		publishDroppedTotal.Inc()
		b.log.Warn("publish dropped, broker unavailable", "routing_key", routingKey)
		return nil
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.Publish(ctx, b.exchange, routingKey, msg); err != nil {
		publishDroppedTotal.Inc()
		b.log.Warn("publish failed, broker unavailable", "routing_key", routingKey, "error", err)
		return nil
	}
	publishedTotal.WithLabelValues(routingKey).Inc()
	return nil
}

// Subscribe records the handler immediately, independent of connection
// state. The first handler for a routing key triggers consumer creation:
// right away when connected, otherwise through a polling loop that is torn
// down with the bus.
func (b *ResilientBus) Subscribe(routingKey string, h Handler) {
	if !b.reg.add(routingKey, h) {
		return
	}
	if err := b.createConsumer(routingKey); err == nil {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.poll)
		defer ticker.Stop()
		for {
			select {
			case <-b.done:
				return
			case <-ticker.C:
				if err := b.createConsumer(routingKey); err == nil {
					return
				}
			}
		}
	}()
}

// Close tears down the connection, the health listener, and any pending
// consumer-creation loops.
func (b *ResilientBus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	b.mu.Lock()
	ch := b.ch
	b.ch = nil
	b.consumers = nil
	b.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
	b.wg.Wait()
}

func (b *ResilientBus) connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch != nil
}

// connect dials, declares the exchange, wires connection notifications, and
// recreates consumers for every registered routing key. Transitions into
// the connecting state are mutually exclusive.
func (b *ResilientBus) connect(ctx context.Context) error {
	b.mu.Lock()
	if b.connecting || b.ch != nil {
		b.mu.Unlock()
		return nil
	}
	b.connecting = true
	b.mu.Unlock()

	fail := func(err error) error {
		b.mu.Lock()
		b.connecting = false
		b.mu.Unlock()
		return err
	}

	ch, err := b.broker.Dial(ctx)
	if err != nil {
		return fail(err)
	}
	if err := ch.DeclareExchange(b.exchange); err != nil {
		ch.Close()
		return fail(fmt.Errorf("declare exchange %s: %w", b.exchange, err))
	}

	closes := ch.NotifyClose(make(chan *amqp.Error, 1))
	blocked := ch.NotifyBlocked(make(chan amqp.Blocking, 1))

	b.mu.Lock()
	b.ch = ch
	b.connecting = false
	b.consumers = make(map[string]bool)
	b.mu.Unlock()

	reconnectsTotal.Inc()
	b.wg.Add(1)
	go b.watch(ch, closes, blocked)

	for _, key := range b.reg.keys() {
		if err := b.createConsumer(key); err != nil {
			b.log.Error("recreate consumer failed", "routing_key", key, "error", err)
		}
	}
	b.log.Info("broker connected", "exchange", b.exchange)
	return nil
}

// watch clears the connection handle when the broker signals shutdown and
// logs flow-control notifications.
func (b *ResilientBus) watch(ch brokerChannel, closes chan *amqp.Error, blocked chan amqp.Blocking) {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case err, ok := <-closes:
			b.mu.Lock()
			if b.ch == ch {
				b.ch = nil
				b.consumers = nil
			}
			b.mu.Unlock()
			if ok && err != nil {
				b.log.Warn("broker connection lost", "error", err)
			}
			return
		case blk := <-blocked:
			if blk.Active {
				b.log.Warn("broker connection blocked", "reason", blk.Reason)
			} else {
				b.log.Info("broker connection unblocked")
			}
		}
	}
}

// createConsumer binds the durable queue for routingKey and starts its
// dispatch loop. Returns errNotConnected while the connection is down;
// creating an already-active consumer is a no-op.
func (b *ResilientBus) createConsumer(routingKey string) error {
	b.mu.Lock()
	ch := b.ch
	if ch == nil {
		b.mu.Unlock()
		return errNotConnected
	}
	if b.consumers[routingKey] {
		b.mu.Unlock()
		return nil
	}
	b.consumers[routingKey] = true
	b.mu.Unlock()

	release := func() {
		b.mu.Lock()
		if b.consumers != nil {
			delete(b.consumers, routingKey)
		}
		b.mu.Unlock()
	}

	queue := routingKey + ".Queue"
	if err := ch.DeclareAndBindQueue(queue, routingKey, b.exchange); err != nil {
		release()
		return err
	}
	deliveries, err := ch.Consume(queue)
	if err != nil {
		release()
		return err
	}

	b.wg.Add(1)
	go b.dispatch(routingKey, deliveries)
	return nil
}

// dispatch runs every registered handler for each delivery concurrently and
// acknowledges only when all of them succeed; otherwise the message is
// requeued for redelivery. The loop ends when the broker closes the
// delivery channel.
func (b *ResilientBus) dispatch(routingKey string, deliveries <-chan amqp.Delivery) {
	defer b.wg.Done()
	for d := range deliveries {
		handlers := b.reg.get(routingKey)
		g, ctx := errgroup.WithContext(context.Background())
		for _, h := range handlers {
			g.Go(func() error { return h(ctx, d.Body) })
		}
		if err := g.Wait(); err != nil {
			deliveriesTotal.WithLabelValues(routingKey, "requeued").Inc()
			b.log.Error("event handling failed, requeueing",
				"routing_key", routingKey, "message_id", d.MessageId, "error", err)
			if nerr := d.Nack(false, true); nerr != nil {
				b.log.Warn("nack failed", "routing_key", routingKey, "error", nerr)
			}
			continue
		}
		deliveriesTotal.WithLabelValues(routingKey, "acked").Inc()
		if aerr := d.Ack(false); aerr != nil {
			b.log.Warn("ack failed", "routing_key", routingKey, "error", aerr)
		}
	}
}
