package amqpnet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/LerianStudio/lib-dispatch/dispatch"
	"github.com/LerianStudio/lib-dispatch/dispatch/internal/nilcheck"
	"github.com/LerianStudio/lib-dispatch/dispatch/log"
	"github.com/LerianStudio/lib-dispatch/dispatch/runtime"
)

var (
	// ErrChannelRequired is returned when New receives a nil channel.
	ErrChannelRequired = errors.New("amqp channel is required")

	// ErrChannelClosed is returned from Send once the underlying channel has
	// closed, whether by Close or by the broker.
	ErrChannelClosed = errors.New("amqp channel is closed")
)

const (
	// DefaultPublishTimeout bounds a single publish when the caller's context
	// carries no deadline of its own.
	DefaultPublishTimeout = 5 * time.Second

	defaultContentType = "application/octet-stream"
)

// Channel is the subset of *amqp091.Channel the network uses. It exists so
// tests can substitute a double.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

var _ Channel = (*amqp.Channel)(nil)

// Network publishes dispatch deliveries over one AMQP channel. The zero
// exchange ("") routes by queue name, so with defaults each recipient
// identity names the queue that receives its traffic.
type Network struct {
	ch     Channel
	logger log.Logger

	exchange       string
	appID          string
	publishTimeout time.Duration

	done chan struct{}

	mu       sync.RWMutex
	closed   bool
	closeErr *amqp.Error
}

var _ dispatch.Network = (*Network)(nil)

// Option configures a Network.
type Option func(*Network)

// WithLogger sets a structured logger. A nil logger is ignored.
func WithLogger(logger log.Logger) Option {
	return func(n *Network) {
		if !nilcheck.Interface(logger) {
			n.logger = logger
		}
	}
}

// WithExchange routes publications through the named exchange instead of the
// default one.
func WithExchange(exchange string) Option {
	return func(n *Network) {
		n.exchange = exchange
	}
}

// WithAppID overrides the AppId stamped on publications. Without it the
// dispatching identity carried on the send context is used.
func WithAppID(appID string) Option {
	return func(n *Network) {
		n.appID = appID
	}
}

// WithPublishTimeout overrides the per-publish timeout. Non-positive values
// are ignored.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(n *Network) {
		if timeout > 0 {
			n.publishTimeout = timeout
		}
	}
}

// New wraps an AMQP channel. The channel should be dedicated to this
// network; a goroutine watches it for close events so Send can fail fast
// once the broker hangs up.
func New(ch Channel, opts ...Option) (*Network, error) {
	if nilcheck.Interface(ch) {
		return nil, ErrChannelRequired
	}

	network := &Network{
		ch:             ch,
		logger:         log.NewNop(),
		publishTimeout: DefaultPublishTimeout,
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(network)
		}
	}

	closeNotify := ch.NotifyClose(make(chan *amqp.Error, 1))

	network.startCloseMonitor(closeNotify)

	return network, nil
}

func (n *Network) startCloseMonitor(closeNotify chan *amqp.Error) {
	runtime.SafeGo(n.logger, "amqp-network-close-monitor", func() {
		select {
		case amqpErr := <-closeNotify:
			n.markClosed(amqpErr)

			if amqpErr != nil {
				n.logger.Log(context.Background(), log.LevelWarn, "amqp channel closed by broker",
					log.Int("code", amqpErr.Code),
					log.String("reason", amqpErr.Reason),
				)
			}
		case <-n.done:
		}
	})
}

func (n *Network) markClosed(amqpErr *amqp.Error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true

	if n.closeErr == nil {
		n.closeErr = amqpErr
	}
}

// Send publishes the payload with the recipient identity as the routing key.
// The publish is bounded by the configured timeout on top of any deadline
// the caller's context carries.
func (n *Network) Send(ctx context.Context, recipient string, payload []byte) error {
	n.mu.RLock()
	closed := n.closed
	closeErr := n.closeErr
	n.mu.RUnlock()

	if closed {
		if closeErr != nil {
			return fmt.Errorf("%w: %s", ErrChannelClosed, closeErr.Reason)
		}

		return ErrChannelClosed
	}

	if ctx == nil {
		ctx = context.Background()
	}

	appID := n.appID
	if appID == "" {
		if source, ok := dispatch.SourceFromContext(ctx); ok {
			appID = source
		}
	}

	publishCtx, cancel := context.WithTimeout(ctx, n.publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  defaultContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		AppId:        appID,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}

	if err := n.ch.PublishWithContext(publishCtx, n.exchange, recipient, false, false, msg); err != nil {
		return fmt.Errorf("publish to %q: %w", recipient, err)
	}

	return nil
}

// Close stops the close monitor and closes the underlying channel. It is
// idempotent.
func (n *Network) Close() error {
	n.mu.Lock()

	if n.closed {
		n.mu.Unlock()

		return nil
	}

	n.closed = true
	n.mu.Unlock()

	close(n.done)

	if err := n.ch.Close(); err != nil {
		return fmt.Errorf("close amqp channel: %w", err)
	}

	return nil
}
