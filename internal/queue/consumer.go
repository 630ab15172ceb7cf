// Package queue contains the background consumer that listens to the floor
// event queues and hands decoded events to a Handler.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler reacts to floor events.  A returned error rejects the message.
type Handler interface {
	TableStatusChanged(ctx context.Context, ev TableStatusChangedEvent) error
	LayoutActivated(ctx context.Context, ev LayoutActivatedEvent) error
}

// Consumer reads both floor event queues from RabbitMQ.
type Consumer struct {
	url     string
	handler Handler
	logger  *zap.Logger
}

// NewConsumer builds a consumer for the broker at url.
func NewConsumer(url string, h Handler, logger *zap.Logger) *Consumer {
	return &Consumer{url: url, handler: h, logger: logger}
}

// Run connects to the broker, declares the durable queues and consumes
// until ctx is cancelled.  Connection failures are retried with an
// exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("floor-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("floor-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

// maxBackoff caps the delay between reconnect attempts.
const maxBackoff = 30 * time.Second

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxBackoff)
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Bound the number of unacked deliveries held by this consumer.
	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("floor-consumer: set QoS failed", zap.Error(err))
	}

	// One channel consumes both queues; each delivery is settled before
	// the next is read.
	status, err := declareAndConsume(ch, TableStatusQueue)
	if err != nil {
		return err
	}
	activated, err := declareAndConsume(ch, LayoutActivatedQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-status:
			// a closed delivery channel means the connection dropped
			if !ok {
				return errors.New("status deliveries channel closed")
			}
			c.settle(d, c.HandleMessage(ctx, TableStatusQueue, d.Body))
		case d, ok := <-activated:
			if !ok {
				return errors.New("activation deliveries channel closed")
			}
			c.settle(d, c.HandleMessage(ctx, LayoutActivatedQueue, d.Body))
		}
	}
}

// settle acks a handled delivery and drops a failed one.
func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.logger.Error("floor-consumer: handle message failed", zap.String("routing_key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

// HandleMessage decodes one message body from the named queue and
// dispatches it.
func (c *Consumer) HandleMessage(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case TableStatusQueue:
		var ev TableStatusChangedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.FloorID == "" || ev.TableID == "" {
			return errors.New("status event without floor or table id")
		}
		return c.handler.TableStatusChanged(ctx, ev)
	case LayoutActivatedQueue:
		var ev LayoutActivatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.FloorID == "" {
			return errors.New("activation event without floor id")
		}
		return c.handler.LayoutActivated(ctx, ev)
	}
	return fmt.Errorf("unknown queue %q", queue)
}

// declareAndConsume declares a durable queue and starts a manual-ack
// consumer on it.
func declareAndConsume(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", name, err)
	}
	msgs, err := ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", name, err)
	}
	return msgs, nil
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
