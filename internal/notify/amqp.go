package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultDialTimeout = 3 * time.Second
	redialBackoff      = 5 * time.Second
)

// ErrBrokerUnavailable is returned while a failed connection attempt is
// backing off.
var ErrBrokerUnavailable = errors.New("notify: broker unavailable")

// AMQPNotifier publishes changes as persistent messages on a durable queue.
// The connection is opened lazily and reopened after it drops. Dialing
// happens outside the lock, so a slow broker never queues publishers
// behind one another.
type AMQPNotifier struct {
	url         string
	queue       string
	dialTimeout time.Duration

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	nextRetry time.Time
}

// AMQPOption configures an AMQPNotifier.
type AMQPOption func(*AMQPNotifier)

// WithDialTimeout bounds connection setup, handshake included.
func WithDialTimeout(d time.Duration) AMQPOption {
	return func(n *AMQPNotifier) { n.dialTimeout = d }
}

// NewAMQPNotifier creates a notifier for the given broker URL and queue name.
func NewAMQPNotifier(url, queue string, opts ...AMQPOption) *AMQPNotifier {
	n := &AMQPNotifier{url: url, queue: queue, dialTimeout: defaultDialTimeout}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish sends c to the queue on the default exchange.
func (n *AMQPNotifier) Publish(ctx context.Context, c Change) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling change: %w", err)
	}

	ch, err := n.channel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		n.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         c.Type,
			Body:         body,
		},
	)
	if err != nil {
		n.drop(ch)
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn, n.ch = nil, nil
	return err
}

// channel returns the open channel or dials a new one.
func (n *AMQPNotifier) channel(ctx context.Context) (*amqp.Channel, error) {
	n.mu.Lock()
	if n.ch != nil && !n.ch.IsClosed() {
		ch := n.ch
		n.mu.Unlock()
		return ch, nil
	}
	if time.Now().Before(n.nextRetry) {
		n.mu.Unlock()
		return nil, ErrBrokerUnavailable
	}
	n.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, ch, err := n.dial()

	n.mu.Lock()
	defer n.mu.Unlock()

	if err != nil {
		n.nextRetry = time.Now().Add(redialBackoff)
		return nil, err
	}
	// Another publisher may have connected while this one was dialing.
	if n.ch != nil && !n.ch.IsClosed() {
		_ = conn.Close()
		return n.ch, nil
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
	slog.Info("notify: connected to broker", "queue", n.queue)
	n.conn, n.ch, n.nextRetry = conn, ch, time.Time{}
	return ch, nil
}

func (n *AMQPNotifier) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(n.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(n.dialTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dialing broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("opening channel: %w", err)
	}

	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declaring queue %s: %w", n.queue, err)
	}
	return conn, ch, nil
}

// drop forgets ch after a failed publish unless it was already replaced.
func (n *AMQPNotifier) drop(ch *amqp.Channel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch != ch {
		return
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
	n.conn, n.ch = nil, nil
}
