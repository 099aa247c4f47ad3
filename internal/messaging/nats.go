// Package messaging provides a NATS client wrapper for pub/sub and
// request/reply messaging across matchmaker services. It handles connection
// lifecycle, subject-based subscriptions, and helpers for the match and
// connection channels.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/campuslink/matchmaker/internal/logging"
)

// NATS subject patterns used across matchmaker services.
const (
	SubjectMatchRequest    = "match.request"    // request/reply
	SubjectMatchPreview    = "match.preview"    // + .<seeker_id>
	SubjectConnectionEvent = "connection.event" // + .<user_id>

	// QueueMatchers load-balances match.request across matcher instances.
	QueueMatchers = "matchers"
)

// Publisher is the subset of NATSClient that fire-and-forget producers need.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// PreviewSubject returns match.preview.<seekerID>.
func PreviewSubject(seekerID string) string {
	return SubjectMatchPreview + "." + seekerID
}

// ConnectionEventSubject returns connection.event.<userID>.
func ConnectionEventSubject(userID string) string {
	return SubjectConnectionEvent + "." + userID
}

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn   *nats.Conn
	logger zerolog.Logger
	mu     sync.Mutex
	subs   map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "matchmaker",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	logger := logging.For("nats")
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info().Msg("connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	logger.Info().Str("url", nc.ConnectedUrl()).Msg("connected")

	return &NATSClient{
		conn:   nc,
		logger: logger,
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Request sends data on subject and waits for a single reply until ctx is done.
func (c *NATSClient) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := c.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("nats request %s: %w", subject, err)
	}
	return msg.Data, nil
}

// QueueSubscribe registers handler for subject in a queue group, so each
// message reaches one member of the group. The subscription is tracked for
// Close.
func (c *NATSClient) QueueSubscribe(subject, queue string, handler func(msg *nats.Msg)) error {
	sub, err := c.conn.QueueSubscribe(subject, queue, handler)
	if err != nil {
		return fmt.Errorf("nats queue subscribe %s: %w", subject, err)
	}
	c.track(subject+"#"+queue, sub)
	return nil
}

func (c *NATSClient) track(key string, sub *nats.Subscription) {
	c.mu.Lock()
	c.subs[key] = sub
	c.mu.Unlock()
}

// SubscribeMatchRequest serves match.request in the matchers queue group. The
// handler's return value is sent as the reply.
func (c *NATSClient) SubscribeMatchRequest(handler func(data []byte) []byte) error {
	return c.QueueSubscribe(SubjectMatchRequest, QueueMatchers, func(msg *nats.Msg) {
		reply := handler(msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			c.logger.Error().Err(err).Str("subject", msg.Subject).Msg("respond")
		}
	})
}

// UnsubscribeMatchRequest leaves the matchers queue group. Requests already
// buffered for this member are still passed to the handler.
func (c *NATSClient) UnsubscribeMatchRequest() error {
	return c.unsubscribe(SubjectMatchRequest + "#" + QueueMatchers)
}

// RequestMatch sends a match request and returns the raw reply.
func (c *NATSClient) RequestMatch(ctx context.Context, data []byte) ([]byte, error) {
	return c.Request(ctx, SubjectMatchRequest, data)
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.logger.Warn().Err(err).Str("subject", subject).Msg("drain")
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		c.logger.Warn().Err(err).Msg("connection drain")
	}

	c.logger.Info().Msg("client closed")
}

// unsubscribe drains and forgets the subscription tracked under key.
func (c *NATSClient) unsubscribe(key string) error {
	c.mu.Lock()
	sub, ok := c.subs[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for %s", key)
	}
	delete(c.subs, key)
	c.mu.Unlock()

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain %s: %w", key, err)
	}
	return nil
}
