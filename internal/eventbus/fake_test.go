package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBroker stands in for the AMQP client so connection lifecycle and
// consumer recreation can be exercised without a running broker.
type fakeBroker struct {
	mu    sync.Mutex
	ok    bool
	dials int
	last  *fakeChannel
}

func (f *fakeBroker) Dial(context.Context) (brokerChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	if !f.ok {
		return nil, errors.New("dial refused")
	}
	f.last = newFakeChannel()
	return f.last, nil
}

func (f *fakeBroker) setOK(ok bool) {
	f.mu.Lock()
	f.ok = ok
	f.mu.Unlock()
}

func (f *fakeBroker) channel() *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type publishedMsg struct {
	key string
	msg amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	bindings   map[string]string // queue -> routing key
	deliveries map[string]chan amqp.Delivery
	published  []publishedMsg
	closes     chan *amqp.Error
	closed     bool
	acks       *fakeAcks
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		bindings:   make(map[string]string),
		deliveries: make(map[string]chan amqp.Delivery),
		closes:     make(chan *amqp.Error, 1),
		acks:       &fakeAcks{},
	}
}

func (c *fakeChannel) DeclareExchange(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = append(c.exchanges, name)
	return nil
}

func (c *fakeChannel) DeclareAndBindQueue(queue, routingKey, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[queue] = routingKey
	return nil
}

func (c *fakeChannel) Consume(queue string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan amqp.Delivery, 16)
	c.deliveries[queue] = ch
	return ch, nil
}

func (c *fakeChannel) Publish(_ context.Context, _, routingKey string, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	c.published = append(c.published, publishedMsg{key: routingKey, msg: msg})
	return nil
}

func (c *fakeChannel) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	go func() {
		for e := range c.closes {
			ch <- e
		}
		close(ch)
	}()
	return ch
}

func (c *fakeChannel) NotifyBlocked(ch chan amqp.Blocking) chan amqp.Blocking {
	return ch
}

func (c *fakeChannel) Close() error {
	c.drop()
	return nil
}

// drop simulates losing the connection: the notify channel and every
// delivery channel close, exactly as amqp091 behaves.
func (c *fakeChannel) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.closes)
	for _, ch := range c.deliveries {
		close(ch)
	}
}

func (c *fakeChannel) deliver(queue string, body []byte) bool {
	c.mu.Lock()
	ch, ok := c.deliveries[queue]
	closed := c.closed
	c.mu.Unlock()
	if !ok || closed {
		return false
	}
	ch <- amqp.Delivery{Acknowledger: c.acks, Body: body}
	return true
}

func (c *fakeChannel) consumerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}

func (c *fakeChannel) publishedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

type fakeAcks struct {
	mu       sync.Mutex
	acked    int
	nacked   int
	requeued bool
}

func (a *fakeAcks) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *fakeAcks) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked++
	a.requeued = requeue
	return nil
}

func (a *fakeAcks) Reject(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked++
	return nil
}

func (a *fakeAcks) counts() (acked, nacked int, requeued bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acked, a.nacked, a.requeued
}
