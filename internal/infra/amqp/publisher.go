package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"codemaster/internal/domain"
	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is used when no exchange name is configured.
const DefaultExchange = "codemaster.events"

// Publisher sends domain events to a topic exchange, routed by event type.
// A publisher built with an empty URL is disabled and drops events.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if url == "" {
		log.Println("amqp url is empty, event publishing is disabled")
		return &Publisher{exchange: exchange}, nil
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Printf("event publisher initialized with exchange %s", exchange)
	return &Publisher{conn: conn, channel: channel, exchange: exchange, enabled: true}, nil
}

// Enabled reports whether events are actually sent.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Publish sends evt with its type as routing key.
func (p *Publisher) Publish(ctx context.Context, evt domain.Event) error {
	if !p.enabled {
		return nil
	}
	msg, err := message(evt)
	if err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, evt.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		log.Printf("close rabbitmq channel: %v", err)
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("close rabbitmq connection: %w", err)
	}
	return nil
}

func message(evt domain.Event) (amqp091.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	ts := evt.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    ts,
		Type:         evt.Type,
		Body:         body,
		Headers: amqp091.Table{
			"event_type": evt.Type,
			"session_id": evt.SessionID,
		},
	}, nil
}
