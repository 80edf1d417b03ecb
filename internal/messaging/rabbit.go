// Package messaging connects the server to RabbitMQ. Booking expiries are
// scheduled through a delayed-message exchange, and committed domain events
// are published to a topic exchange.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// Config holds broker settings. An empty URL disables the broker.
type Config struct {
	URL             string `mapstructure:"url" yaml:"url"`
	DelayedExchange string `mapstructure:"delayed_exchange" yaml:"delayed_exchange"`
	ExpiryQueue     string `mapstructure:"expiry_queue" yaml:"expiry_queue"`
	EventsExchange  string `mapstructure:"events_exchange" yaml:"events_exchange"`
	Prefetch        int    `mapstructure:"prefetch" yaml:"prefetch"`
}

// Enabled reports whether a broker URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

const expiryRoutingKey = "booking.expiry"

// Client owns one connection with separate publish and consume channels.
type Client struct {
	cfg  Config
	log  zerolog.Logger
	conn *amqp.Connection

	mu  sync.Mutex // guards pub
	pub *amqp.Channel
	sub *amqp.Channel
}

// Dial connects to the broker and declares the exchanges and the expiry
// queue.
func Dial(cfg Config, log zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to rabbitmq: %w", model.ErrUpstreamUnavailable, err)
	}

	c := &Client{cfg: cfg, log: log.With().Str("component", "rabbitmq").Logger(), conn: conn}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, err
	}

	c.log.Info().
		Str("delayed_exchange", cfg.DelayedExchange).
		Str("queue", cfg.ExpiryQueue).
		Str("events_exchange", cfg.EventsExchange).
		Msg("rabbitmq initialized")
	return c, nil
}

func (c *Client) setup() error {
	var err error
	if c.pub, err = c.conn.Channel(); err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}
	if c.sub, err = c.conn.Channel(); err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}

	if err := c.pub.ExchangeDeclare(
		c.cfg.DelayedExchange,
		"x-delayed-message",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.cfg.DelayedExchange, err)
	}
	if err := c.pub.ExchangeDeclare(c.cfg.EventsExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.cfg.EventsExchange, err)
	}
	if _, err := c.sub.QueueDeclare(c.cfg.ExpiryQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.ExpiryQueue, err)
	}
	if err := c.sub.QueueBind(c.cfg.ExpiryQueue, expiryRoutingKey, c.cfg.DelayedExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.cfg.ExpiryQueue, err)
	}
	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 16
	}
	if err := c.sub.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// reconnect replaces a dropped connection and redeclares the topology.
// Publishers blocked on mu pick up the new channel.
func (c *Client) reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		_ = c.conn.Close()
	}
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("%w: reconnect to rabbitmq: %w", model.ErrUpstreamUnavailable, err)
	}
	c.conn = conn
	if err := c.setup(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrUpstreamUnavailable, err)
	}
	c.log.Info().Msg("rabbitmq reconnected")
	return nil
}

// Close releases the channels and the connection.
func (c *Client) Close() {
	if c.pub != nil {
		_ = c.pub.Close()
	}
	if c.sub != nil {
		_ = c.sub.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.log.Info().Msg("rabbitmq connection closed")
}

// ScheduleExpiry publishes msg so that it is delivered after delay.
func (c *Client) ScheduleExpiry(ctx context.Context, msg model.BookingExpiry, delay time.Duration) error {
	body, err := EncodeExpiry(msg)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.BookingID,
		Timestamp:    time.Now(),
		Headers:      amqp.Table{"x-delay": delayMillis(delay)},
		Body:         body,
	}
	if err := c.publish(ctx, c.cfg.DelayedExchange, expiryRoutingKey, pub); err != nil {
		return err
	}
	c.log.Debug().Str("booking_id", msg.BookingID).Dur("delay", delay).Msg("expiry scheduled")
	return nil
}

// PublishEvent publishes a committed domain event with the topic as
// routing key.
func (c *Client) PublishEvent(ctx context.Context, msg model.OutboxMessage) error {
	return c.publish(ctx, c.cfg.EventsExchange, msg.Topic, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.CreatedAt,
		Type:         msg.Topic,
		Body:         msg.Payload,
	})
}

func (c *Client) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pub.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("%w: publish to %s: %w", model.ErrUpstreamUnavailable, exchange, err)
		}
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}
	return nil
}

// ExpiryHandler processes one due booking expiry.
type ExpiryHandler func(ctx context.Context, msg model.BookingExpiry) error

// ConsumeExpiries delivers expiry messages to fn until ctx is done or the
// channel closes. A closed connection is redialed first. Malformed messages
// are dropped; messages whose handler fails with model.ErrUpstreamUnavailable
// are requeued. A lost broker is reported as model.ErrUpstreamUnavailable.
func (c *Client) ConsumeExpiries(ctx context.Context, fn ExpiryHandler) error {
	if c.sub == nil || c.sub.IsClosed() {
		if err := c.reconnect(); err != nil {
			return err
		}
	}
	deliveries, err := c.sub.ConsumeWithContext(ctx, c.cfg.ExpiryQueue, "", false, false, false, false, nil)
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("%w: consume %s: %w", model.ErrUpstreamUnavailable, c.cfg.ExpiryQueue, err)
		}
		return fmt.Errorf("consume %s: %w", c.cfg.ExpiryQueue, err)
	}
	c.log.Info().Str("queue", c.cfg.ExpiryQueue).Msg("consuming expiries")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: delivery channel closed", model.ErrUpstreamUnavailable)
			}
			c.handle(ctx, d, fn)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp.Delivery, fn ExpiryHandler) {
	msg, err := DecodeExpiry(d.Body)
	if err != nil {
		c.log.Warn().Err(err).Str("message_id", d.MessageId).Msg("dropping malformed expiry message")
		_ = d.Nack(false, false)
		return
	}

	if err := fn(ctx, msg); err != nil {
		requeue := errors.Is(err, model.ErrUpstreamUnavailable)
		c.log.Warn().Err(err).Str("booking_id", msg.BookingID).Bool("requeue", requeue).Msg("expiry failed")
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

// EncodeExpiry serializes an expiry message.
func EncodeExpiry(msg model.BookingExpiry) ([]byte, error) {
	if err := model.CheckID(msg.BookingID); err != nil {
		return nil, fmt.Errorf("encode expiry: %w", err)
	}
	return json.Marshal(msg)
}

// DecodeExpiry parses an expiry message and checks its booking id.
func DecodeExpiry(body []byte) (model.BookingExpiry, error) {
	var msg model.BookingExpiry
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("decode expiry: %w", err)
	}
	if err := model.CheckID(msg.BookingID); err != nil {
		return msg, fmt.Errorf("decode expiry: %w", err)
	}
	return msg, nil
}

func delayMillis(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
