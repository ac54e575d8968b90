// Package amqp mirrors committed domain events to a RabbitMQ queue for
// consumers outside the process (reporting, sync jobs). The realtime feed
// does not depend on it; a broker outage only costs the mirror.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	domoutbox "github.com/workboxhq/workbox/internal/domain/outbox"
	"github.com/workboxhq/workbox/internal/observability"
)

const componentMirror = "amqp_mirror"

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     observability.Logger
}

func NewPublisher(url, queue string, tel observability.Observability) (*Publisher, error) {
	if tel == nil {
		tel = observability.Nop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: declare queue: %w", err)
	}

	return &Publisher{
		conn:    conn,
		channel: channel,
		queue:   queue,
		log:     tel.Logger().With(observability.F("component", componentMirror)),
	}, nil
}

type message struct {
	Event string          `json:"event"`
	Data  domoutbox.Event `json:"data"`
}

// HandleEvent publishes the event to the mirror queue. Failures are logged
// and swallowed so a broker outage never fails bus dispatch.
func (p *Publisher) HandleEvent(ctx context.Context, e domoutbox.Event) error {
	body, err := json.Marshal(message{Event: e.EventName(), Data: e})
	if err != nil {
		p.log.Error("event_encode_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
		return nil
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		p.log.Warn("event_mirror_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
