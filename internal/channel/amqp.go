// Package channel carries notification messages to their transports. The
// dispatcher publishes structured payloads to a durable exchange with one
// routing key per channel; the actual push/email/whatsapp/social transport
// workers consume those queues downstream.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys, one per notification channel.
const (
	RoutePush     = "notify.push"
	RouteEmail    = "notify.email"
	RouteWhatsapp = "notify.whatsapp"
	RouteSocial   = "notify.social"
)

type Config struct {
	URL      string
	Exchange string
}

// Dispatcher owns the broker connection shared by all channel senders.
type Dispatcher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

func NewDispatcher(cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	for _, route := range []string{RoutePush, RouteEmail, RouteWhatsapp, RouteSocial} {
		queueName := queueFor(route)
		q, err := ch.QueueDeclare(
			queueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
		}
		if err := ch.QueueBind(q.Name, route, cfg.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("bind queue %s: %w", queueName, err)
		}
	}

	logger.Info("connected to rabbitmq", "exchange", cfg.Exchange)

	return &Dispatcher{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

func queueFor(route string) string {
	return "contenthub_" + route[len("notify."):]
}

func (d *Dispatcher) publish(ctx context.Context, route string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = d.channel.PublishWithContext(
		ctx,
		d.exchange,
		route,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%w: publish %s: %v", ErrTransport, route, err)
	}

	d.logger.Debug("published message", "route", route)
	return nil
}

func (d *Dispatcher) Close() error {
	if d.channel != nil {
		d.channel.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
