package messaging

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// RabbitTransport implements ports.Transport over a fanout exchange. Every
// process binds its own exclusive queue, so each one sees every change.
type RabbitTransport struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	cb       *gobreaker.CircuitBreaker
}

var _ ports.Transport = (*RabbitTransport)(nil)

func NewRabbitTransport(amqpURL, exchange string) (*RabbitTransport, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Declare the exchange (idempotent)
	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitTransport{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		cb:       config.NewCircuitBreaker("RabbitMQ-Sync"),
	}, nil
}

func (rmq *RabbitTransport) Publish(ctx context.Context, change domain.SlotChange) error {
	body, err := encodeChange(change)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Use circuit breaker to protect RabbitMQ publish operation
	_, err = rmq.cb.Execute(func() (interface{}, error) {
		err := rmq.ch.PublishWithContext(
			ctx,
			rmq.exchange,
			"",    // routing key, ignored by fanout
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType: "application/json",
				Body:        body,
			},
		)
		return nil, err
	})
	return err
}

// Receive consumes from a private queue bound to the exchange until ctx is
// done or the broker closes the delivery channel.
func (rmq *RabbitTransport) Receive(ctx context.Context, deliver func([]byte)) error {
	ch, err := rmq.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, "", rmq.exchange, false, nil); err != nil {
		return err
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("rabbitmq: delivery channel closed")
			}
			deliver(msg.Body)
		}
	}
}

// Ping reports whether the connection is still open.
func (rmq *RabbitTransport) Ping(context.Context) error {
	if rmq.conn == nil || rmq.conn.IsClosed() {
		return fmt.Errorf("rabbitmq: connection closed")
	}
	return nil
}

func (rmq *RabbitTransport) Close() error {
	if rmq.ch != nil {
		if err := rmq.ch.Close(); err != nil {
			return err
		}
	}
	if rmq.conn != nil {
		return rmq.conn.Close()
	}
	return nil
}
