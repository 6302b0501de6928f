// Package queue publishes and consumes JSON jobs over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Publisher sends persistent JSON messages to one queue. A connection the
// broker dropped is redialled on the next Publish.
type Publisher struct {
	url   string
	queue string

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan *amqp.Error
}

// Dial connects and declares a durable queue.
func Dial(url, queue string) (*Publisher, error) {
	p := &Publisher{url: url, queue: queue}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("queue.Dial: %w", err)
	}
	return p, nil
}

// connect opens a fresh connection and channel. Callers hold mu, except
// Dial which owns p exclusively.
func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if _, err := declare(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	p.conn, p.ch = conn, ch
	p.closed = conn.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

func (p *Publisher) alive() bool {
	if p.ch == nil {
		return false
	}
	select {
	case <-p.closed:
		return false
	default:
		return true
	}
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

func (p *Publisher) Publish(ctx context.Context, message any) error {
	const op = "queue.Publish"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if !p.alive() {
			p.reset()
			if err := p.connect(); err != nil {
				return fmt.Errorf("%s: reconnect: %w", op, err)
			}
			log.WithField("queue", p.queue).Info("Reconnected to message broker")
		}
		err = p.ch.Publish("", p.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
		if errors.Is(err, amqp.ErrClosed) && attempt == 0 {
			p.reset()
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	if cerr := p.conn.Close(); err == nil {
		err = cerr
	}
	p.conn, p.ch = nil, nil
	return err
}

// Consume hands every delivery to handle until ctx is done. Failed
// deliveries are requeued once and dropped on the second failure.
func Consume(ctx context.Context, url, queue string, handle func(context.Context, []byte) error) error {
	const op = "queue.Consume"

	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer ch.Close()

	if _, err := declare(ch, queue); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.WithField("queue", queue).Info("Waiting for messages")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: delivery channel closed", op)
			}
			if err := handle(ctx, d.Body); err != nil {
				log.WithError(err).WithField("queue", queue).Warn("Message handling failed")
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
