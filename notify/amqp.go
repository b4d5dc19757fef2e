package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

// Client represents a RabbitMQ client.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects to the broker at url and opens a channel.
func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			slog.Error("Failed to close a connection", "error", cerr)
		}
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	slog.Info("RabbitMQ connected")

	return &Client{
		conn:    conn,
		channel: channel,
	}, nil
}

// Channel returns the underlying AMQP channel.
func (c *Client) Channel() *amqp.Channel {
	return c.channel
}

// Close closes the channel and connection for graceful shutdown.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			return err
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

// DeclareExchange declares a durable topic exchange.
func (c *Client) DeclareExchange(name string) error {
	return c.channel.ExchangeDeclare(
		name,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
}

// AMQPSink publishes every event as JSON to a topic exchange under the
// routing key "notification.<kind>".
type AMQPSink struct {
	client   *Client
	exchange string
	// amqp channels must not be used by several goroutines at once.
	mu sync.Mutex
}

func NewAMQPSink(client *Client, exchange string) (*AMQPSink, error) {
	if err := client.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPSink{client: client, exchange: exchange}, nil
}

func RoutingKey(kind Kind) string {
	return "notification." + string(kind)
}

func encodeEvent(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         string(ev.Kind),
		Body:         body,
	}, nil
}

func (s *AMQPSink) Deliver(_ context.Context, ev Event) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.Channel().Publish(
		s.exchange,
		RoutingKey(ev.Kind),
		false,
		false,
		msg,
	)
}
