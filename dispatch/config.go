package dispatch

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/LerianStudio/lib-dispatch/dispatch/internal/nilcheck"
	"github.com/LerianStudio/lib-dispatch/dispatch/log"
)

const (
	defaultLocalIdentity = "local"
	defaultDrainTimeout  = 5 * time.Second
)

// DispatcherConfig controls dispatcher identity, shutdown, and metric behavior.
type DispatcherConfig struct {
	// LocalIdentity names this dispatcher as the traffic source in logs,
	// metrics, observer contexts, and Network.Send contexts.
	LocalIdentity string
	// DrainTimeout bounds how long Shutdown waits for the loop to finish its
	// in-flight delivery after the receiver is closed.
	DrainTimeout time.Duration
	// MeterProvider overrides the default global meter provider when set.
	MeterProvider metric.MeterProvider
}

// DefaultDispatcherConfig returns the baseline dispatcher configuration.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		LocalIdentity: defaultLocalIdentity,
		DrainTimeout:  defaultDrainTimeout,
		MeterProvider: nil,
	}
}

func (cfg *DispatcherConfig) normalize() {
	defaults := DefaultDispatcherConfig()

	if strings.TrimSpace(cfg.LocalIdentity) == "" {
		cfg.LocalIdentity = defaults.LocalIdentity
	}

	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaults.DrainTimeout
	}
}

// DispatcherOption mutates dispatcher configuration at construction.
type DispatcherOption func(*Dispatcher)

// WithLogger sets a structured logger. Passing nil keeps the no-op default.
func WithLogger(logger log.Logger) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if nilcheck.Interface(logger) {
			return
		}

		dispatcher.logger = logger
	}
}

// WithTracer sets the tracer used to span each delivery attempt. Passing nil
// keeps the no-op default.
func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if nilcheck.Interface(tracer) {
			return
		}

		dispatcher.tracer = tracer
	}
}

// WithObserver registers a delivery observer notified after every attempt.
func WithObserver(observer DeliveryObserver) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if nilcheck.Interface(observer) {
			dispatcher.observer = nil

			return
		}

		dispatcher.observer = observer
	}
}

// WithLocalIdentity sets the identity this dispatcher reports as the source
// of its deliveries.
func WithLocalIdentity(identity string) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if strings.TrimSpace(identity) != "" {
			dispatcher.cfg.LocalIdentity = identity
		}
	}
}

// WithDrainTimeout sets the bound on Shutdown's wait for loop exit.
func WithDrainTimeout(timeout time.Duration) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if timeout > 0 {
			dispatcher.cfg.DrainTimeout = timeout
		}
	}
}

// WithMeterProvider injects a custom meter provider for dispatcher metrics.
// Passing nil keeps the default global OpenTelemetry meter provider.
func WithMeterProvider(provider metric.MeterProvider) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if nilcheck.Interface(provider) {
			dispatcher.cfg.MeterProvider = nil

			return
		}

		dispatcher.cfg.MeterProvider = provider
	}
}
