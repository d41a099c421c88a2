package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultDialTimeout = 2 * time.Second

// RabbitPublisher publishes to a durable queue on the default exchange.
type RabbitPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
}

func NewRabbitPublisher(url string) *RabbitPublisher {
	return &RabbitPublisher{url: url, queue: ProvisionedQueue, dialTimeout: defaultDialTimeout}
}

// PublishProvisioned dials per call; provisioning is rare enough that a
// long-lived channel with reconnect logic is not worth carrying.
func (p *RabbitPublisher) PublishProvisioned(ctx context.Context, ev ProvisionedEvent) error {
	// Publishing runs inside the webhook request; an unreachable broker must
	// not hold it for the library's 30s default.
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.SessionID + ":" + ev.Course,
		Body:         body,
	})
}
