package eventbus

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// broker abstracts the slice of the AMQP client the bus touches so tests
// can substitute a fake without a running broker.
type broker interface {
	Dial(ctx context.Context) (brokerChannel, error)
}

type brokerChannel interface {
	DeclareExchange(name string) error
	DeclareAndBindQueue(queue, routingKey, exchange string) error
	Consume(queue string) (<-chan amqp.Delivery, error)
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
	NotifyClose(ch chan *amqp.Error) chan *amqp.Error
	NotifyBlocked(ch chan amqp.Blocking) chan amqp.Blocking
	Close() error
}

// amqpBroker dials real AMQP connections.
type amqpBroker struct {
	url         string
	dialTimeout time.Duration
}

// NewAMQPBroker returns the production broker transport.
func NewAMQPBroker(url string, dialTimeout time.Duration) *amqpBroker {
	return &amqpBroker{url: url, dialTimeout: dialTimeout}
}

func (b *amqpBroker) Dial(ctx context.Context) (brokerChannel, error) {
	conn, err := amqp.DialConfig(b.url, amqp.Config{
		Dial: amqp.DefaultDial(b.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &amqpChannel{conn: conn, ch: ch}, nil
}

type amqpChannel struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (c *amqpChannel) DeclareExchange(name string) error {
	// Durable direct exchange; survives broker restarts.
	return c.ch.ExchangeDeclare(name, "direct", true, false, false, false, nil)
}

func (c *amqpChannel) DeclareAndBindQueue(queue, routingKey, exchange string) error {
	if _, err := c.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := c.ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return nil
}

func (c *amqpChannel) Consume(queue string) (<-chan amqp.Delivery, error) {
	// Manual acknowledgment; the dispatch loop acks only after every
	// handler succeeds.
	return c.ch.Consume(queue, "", false, false, false, false, nil)
}

func (c *amqpChannel) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	return c.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

func (c *amqpChannel) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	return c.conn.NotifyClose(ch)
}

func (c *amqpChannel) NotifyBlocked(ch chan amqp.Blocking) chan amqp.Blocking {
	return c.conn.NotifyBlocked(ch)
}

func (c *amqpChannel) Close() error {
	c.ch.Close()
	return c.conn.Close()
}

// BrokerProbe returns a ProbeFunc that opens a short-lived throwaway
// connection and declares a disposable exchange, distinct from the main
// publishing connection.
func BrokerProbe(url string, timeout time.Duration) ProbeFunc {
	return func(ctx context.Context) error {
		conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
		if err != nil {
			return err
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return err
		}
		defer ch.Close()
		// Non-durable, auto-delete: nothing left behind on the broker.
		return ch.ExchangeDeclare("sealgate.health.probe", "direct", false, true, false, false, nil)
	}
}
