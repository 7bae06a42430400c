package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LerianStudio/lib-dispatch/dispatch"
	"github.com/LerianStudio/lib-dispatch/dispatch/internal/nilcheck"
	"github.com/LerianStudio/lib-dispatch/dispatch/log"
)

var (
	// ErrNetworkRequired is returned when Wrap receives a nil network.
	ErrNetworkRequired = errors.New("network to wrap is required")

	// ErrCircuitOpen is returned from Send while the circuit rejects traffic,
	// either fully open or half-open with its trial quota exhausted.
	ErrCircuitOpen = errors.New("network circuit is open")
)

const defaultName = "dispatch-network"

// Config holds circuit breaker thresholds.
type Config struct {
	MaxRequests         uint32        // max trial sends in half-open state
	Interval            time.Duration // closed-state window for count resets
	Timeout             time.Duration // how long the circuit stays open
	ConsecutiveFailures uint32        // consecutive failures to trip
	FailureRatio        float64       // failure ratio to trip (e.g. 0.5 for 50%)
	MinRequests         uint32        // min sends before the ratio applies
}

// DefaultConfig provides balanced settings for most transports.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         3,
		Interval:            2 * time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 15,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// AggressiveConfig trips fast, for transports that fail hard and recover fast.
func AggressiveConfig() Config {
	return Config{
		MaxRequests:         2,
		Interval:            1 * time.Minute,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
		FailureRatio:        0.4,
		MinRequests:         5,
	}
}

// State represents the circuit state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Counts is a snapshot of the breaker's statistics.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Network guards another dispatch.Network with a circuit breaker.
type Network struct {
	next    dispatch.Network
	breaker *gobreaker.CircuitBreaker
	logger  log.Logger
}

var _ dispatch.Network = (*Network)(nil)

type settings struct {
	name   string
	cfg    Config
	logger log.Logger
}

// Option configures the wrapper.
type Option func(*settings)

// WithLogger sets a structured logger for state transitions. A nil logger is
// ignored.
func WithLogger(logger log.Logger) Option {
	return func(s *settings) {
		if !nilcheck.Interface(logger) {
			s.logger = logger
		}
	}
}

// WithConfig overrides the breaker thresholds.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg
	}
}

// WithName names the circuit in logs. Useful when several wrapped transports
// share one logger.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// Wrap guards the given network. Every Send flows through the breaker; while
// the circuit is open, sends return ErrCircuitOpen without touching the
// wrapped transport.
func Wrap(next dispatch.Network, opts ...Option) (*Network, error) {
	if nilcheck.Interface(next) {
		return nil, ErrNetworkRequired
	}

	s := settings{
		name:   defaultName,
		cfg:    DefaultConfig(),
		logger: log.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	cfg := s.cfg
	logger := s.logger

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			level := log.LevelInfo
			if to == gobreaker.StateOpen {
				level = log.LevelError
			}

			logger.Log(context.Background(), level, "network circuit state changed",
				log.String("name", name),
				log.String("from", string(convertState(from))),
				log.String("to", string(convertState(to))),
			)
		},
	})

	return &Network{
		next:    next,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Send forwards to the wrapped network through the breaker.
func (n *Network) Send(ctx context.Context, recipient string, payload []byte) error {
	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.next.Send(ctx, recipient, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}

		return err
	}

	return nil
}

// State returns the current circuit state.
func (n *Network) State() State {
	return convertState(n.breaker.State())
}

// Counts returns a snapshot of the breaker's statistics.
func (n *Network) Counts() Counts {
	counts := n.breaker.Counts()

	return Counts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

func convertState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}
