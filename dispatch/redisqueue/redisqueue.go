package redisqueue

import (
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LerianStudio/lib-dispatch/dispatch"
	"github.com/LerianStudio/lib-dispatch/dispatch/internal/nilcheck"
	"github.com/LerianStudio/lib-dispatch/dispatch/log"
)

var (
	// ErrClientRequired is returned when a constructor receives a nil Redis client.
	ErrClientRequired = errors.New("redis client is required")

	// ErrKeyRequired is returned when a constructor receives an empty list key.
	ErrKeyRequired = errors.New("queue key is required")
)

const (
	defaultPollTimeout     = 1 * time.Second
	defaultMaxRecvAttempts = 5
	defaultRetryBase       = 100 * time.Millisecond
	defaultRetryMax        = 2 * time.Second
)

// Config tunes how a receiver polls the Redis list.
type Config struct {
	// PollTimeout bounds each BRPOP call. Shorter values make Recv react
	// faster to Close at the cost of more round trips while idle.
	PollTimeout time.Duration

	// MaxRecvAttempts is how many consecutive transient Redis failures a
	// single Recv tolerates before reporting the queue as disconnected.
	MaxRecvAttempts int

	// RetryBase and RetryMax bound the jittered exponential backoff applied
	// between failed attempts.
	RetryBase time.Duration
	RetryMax  time.Duration
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		PollTimeout:     defaultPollTimeout,
		MaxRecvAttempts: defaultMaxRecvAttempts,
		RetryBase:       defaultRetryBase,
		RetryMax:        defaultRetryMax,
	}
}

func (c *Config) normalize() {
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaultPollTimeout
	}

	if c.MaxRecvAttempts < 1 {
		c.MaxRecvAttempts = defaultMaxRecvAttempts
	}

	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}

	if c.RetryMax < c.RetryBase {
		c.RetryMax = defaultRetryMax
	}
}

type settings struct {
	cfg    Config
	logger log.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		cfg:    DefaultConfig(),
		logger: log.NewNop(),
	}

	for _, opt := range opts {
		opt(&s)
	}

	s.cfg.normalize()

	return s
}

// Option customizes a sender or receiver.
type Option func(*settings)

// WithLogger sets the logger used for transient failures and skipped
// envelopes. A nil logger is ignored.
func WithLogger(logger log.Logger) Option {
	return func(s *settings) {
		if !nilcheck.Interface(logger) {
			s.logger = logger
		}
	}
}

// WithPollTimeout overrides how long each blocking pop waits.
func WithPollTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.cfg.PollTimeout = timeout
	}
}

// WithMaxRecvAttempts overrides how many transient failures Recv tolerates.
func WithMaxRecvAttempts(attempts int) Option {
	return func(s *settings) {
		s.cfg.MaxRecvAttempts = attempts
	}
}

// WithRetryBackoff overrides the backoff window between failed attempts.
func WithRetryBackoff(base, maximum time.Duration) Option {
	return func(s *settings) {
		s.cfg.RetryBase = base
		s.cfg.RetryMax = maximum
	}
}

// envelope is the wire form of one queue entry. Disconnect markers carry no
// recipient or payload.
type envelope struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient,omitempty"`
	Payload    []byte    `json:"payload,omitempty"`
	SentAt     time.Time `json:"sent_at"`
	Disconnect bool      `json:"disconnect,omitempty"`
}

// New builds both halves of a Redis-backed queue over the given list key.
// Use NewSender and NewReceiver instead when the halves live in different
// processes.
func New(client redis.UniversalClient, key string, opts ...Option) (dispatch.Sender[dispatch.OutboundMessage], dispatch.Receiver[dispatch.OutboundMessage], error) {
	sender, err := NewSender(client, key, opts...)
	if err != nil {
		return nil, nil, err
	}

	receiver, err := NewReceiver(client, key, opts...)
	if err != nil {
		return nil, nil, err
	}

	return sender, receiver, nil
}

// NewSender builds the producer half of a Redis-backed queue.
func NewSender(client redis.UniversalClient, key string, opts ...Option) (dispatch.Sender[dispatch.OutboundMessage], error) {
	if nilcheck.Interface(client) {
		return nil, ErrClientRequired
	}

	if key == "" {
		return nil, ErrKeyRequired
	}

	s := newSettings(opts)

	shared := &senderShared{
		client:  client,
		key:     key,
		logger:  s.logger,
		handles: 1,
	}

	return &redisSender{shared: shared}, nil
}

// NewReceiver builds the consumer half of a Redis-backed queue.
func NewReceiver(client redis.UniversalClient, key string, opts ...Option) (dispatch.Receiver[dispatch.OutboundMessage], error) {
	if nilcheck.Interface(client) {
		return nil, ErrClientRequired
	}

	if key == "" {
		return nil, ErrKeyRequired
	}

	s := newSettings(opts)

	return &redisReceiver{
		client: client,
		key:    key,
		logger: s.logger,
		cfg:    s.cfg,
	}, nil
}

// senderShared is the state common to every clone of one sender family.
type senderShared struct {
	client redis.UniversalClient
	key    string
	logger log.Logger

	mu      sync.Mutex
	handles int
}
