package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/logging"
)

// ErrNoURL is returned when no NATS url is configured.
var ErrNoURL = errors.New("nats url is required")

// NATSPublisher publishes events on a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	owned  bool
	logger *logging.Logger
}

// NATSOption configures a NATSPublisher.
type NATSOption func(*NATSPublisher)

// WithSubjectPrefix sets the first subject token.
func WithSubjectPrefix(prefix string) NATSOption {
	return func(p *NATSPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *logging.Logger) NATSOption {
	return func(p *NATSPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url string, opts ...NATSOption) (*NATSPublisher, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	nc, err := nats.Connect(url,
		nats.Name("cadenced"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	p := NewNATSPublisher(nc, opts...)
	p.owned = true
	return p, nil
}

// NewNATSPublisher wraps an existing connection. The caller keeps ownership.
func NewNATSPublisher(nc *nats.Conn, opts ...NATSOption) *NATSPublisher {
	p := &NATSPublisher{
		conn:   nc,
		prefix: DefaultSubjectPrefix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends e as JSON. Errors are logged and dropped.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) {
	subject := Subject(p.prefix, e)
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Warn(ctx, "marshal event failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn(ctx, "publish event failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	p.logger.Debug(ctx, "event published", zap.String("subject", subject), zap.String("event_id", e.ID))
}

// Status returns the connection state, for example "CONNECTED" or
// "RECONNECTING".
func (p *NATSPublisher) Status() string {
	if p.conn == nil {
		return nats.CLOSED.String()
	}
	return p.conn.Status().String()
}

// Close drains the connection when the publisher owns it.
func (p *NATSPublisher) Close() error {
	if !p.owned || p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
