package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// ErrBrokerUnavailable is returned while the publisher waits out the
// backoff that follows a failed dial.
var ErrBrokerUnavailable = errors.New("broker unavailable")

const (
	defaultDialTimeout = 5 * time.Second
	minRedialBackoff   = time.Second
	maxRedialBackoff   = time.Minute
)

// Publisher publishes order events to the order.events queue over a single
// lazily dialed connection.  A broken connection is dropped and redialed
// on the next Publish; after a failed dial, Publish fails fast with
// ErrBrokerUnavailable until the backoff expires.  Errors are returned, not
// logged, so callers decide how loudly to report them.
type Publisher struct {
	url string
	log logrus.FieldLogger
	now func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	closed  bool
	backoff time.Duration
	retryAt time.Time
}

// NewPublisher returns a Publisher for the broker at url.  No connection
// is made until the first Publish.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: log.WithField("component", "publisher"), now: time.Now}
}

// dialTimeout is the time left on ctx, capped at defaultDialTimeout.
func dialTimeout(ctx context.Context, now time.Time) time.Duration {
	d := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok && dl.Sub(now) < d {
		d = dl.Sub(now)
	}
	return d
}

// channel returns an open channel, dialing and declaring the queue when
// needed.  The dial is bounded by ctx.  Callers hold p.mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	now := p.now()
	if now.Before(p.retryAt) {
		return nil, ErrBrokerUnavailable
	}
	timeout := dialTimeout(ctx, now)
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	ch, err := p.dial(timeout)
	if err != nil {
		p.failed(now)
		return nil, err
	}
	if p.backoff > 0 {
		p.log.Info("broker reachable again")
	}
	p.backoff, p.retryAt = 0, time.Time{}
	return ch, nil
}

func (p *Publisher) dial(timeout time.Duration) (*amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		OrderEventsQueue, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// failed doubles the redial backoff, starting at minRedialBackoff.
func (p *Publisher) failed(now time.Time) {
	switch {
	case p.backoff == 0:
		p.backoff = minRedialBackoff
	case p.backoff < maxRedialBackoff:
		p.backoff *= 2
		if p.backoff > maxRedialBackoff {
			p.backoff = maxRedialBackoff
		}
	}
	p.retryAt = now.Add(p.backoff)
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Publish sends ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         ev.Event,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",               // default exchange
		OrderEventsQueue, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		pub,
	); err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the connection.  Later Publish calls fail fast.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset()
	return nil
}
