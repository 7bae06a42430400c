package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/LerianStudio/lib-dispatch/dispatch/internal/nilcheck"
	"github.com/LerianStudio/lib-dispatch/dispatch/log"
	"github.com/LerianStudio/lib-dispatch/dispatch/runtime"
)

// Dispatcher drains one Receiver and forwards every message to a Network
// collaborator, one message at a time.
//
// The loop partitions failures: a delivery error affects only the message
// being delivered (it is logged, reported to the observer, and dropped),
// while queue disconnection is the single terminal condition. Producers stop
// the dispatcher by closing all their Sender handles.
type Dispatcher struct {
	receiver Receiver[OutboundMessage]
	network  Network
	observer DeliveryObserver
	logger   log.Logger
	tracer   trace.Tracer
	cfg      DispatcherConfig

	runStateMu sync.Mutex
	running    bool

	loopWg sync.WaitGroup

	received  atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64

	metrics dispatcherMetrics
}

// NewDispatcher creates a dispatcher over receiver and network.
//
// The dispatcher takes ownership of the receiver: no other consumer may use
// it. The network may be shared; it must be internally synchronized.
func NewDispatcher(
	receiver Receiver[OutboundMessage],
	network Network,
	opts ...DispatcherOption,
) (*Dispatcher, error) {
	if nilcheck.Interface(receiver) {
		return nil, ErrReceiverRequired
	}

	if nilcheck.Interface(network) {
		return nil, ErrNetworkRequired
	}

	dispatcher := &Dispatcher{
		receiver: receiver,
		network:  network,
		logger:   log.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("dispatch.noop"),
		cfg:      DefaultDispatcherConfig(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(dispatcher)
		}
	}

	dispatcher.cfg.normalize()

	metrics, err := newDispatcherMetrics(dispatcher.cfg.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("init dispatch metrics: %w", err)
	}

	dispatcher.metrics = metrics

	return dispatcher, nil
}

// Run executes the dispatch loop on the calling goroutine until the queue
// disconnects, which is the only way it returns. The returned error is
// always a *DispatchError wrapping the receive failure.
//
// ctx is attached (with the dispatcher's local identity) to every
// Network.Send call but does not terminate the loop: a cancelled context
// makes deliveries fail, and delivery failures are absorbed. Stop producing
// and close every Sender handle to shut the loop down, or call Shutdown to
// tear down the receiver directly.
func (dispatcher *Dispatcher) Run(ctx context.Context) error {
	if dispatcher == nil || dispatcher.receiver == nil || dispatcher.network == nil {
		return ErrDispatcherRequired
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if !dispatcher.registerRun() {
		return ErrDispatcherRunning
	}

	defer dispatcher.loopWg.Done()
	defer dispatcher.clearRun()

	ctx = ContextWithSource(ctx, dispatcher.cfg.LocalIdentity)

	dispatcher.logger.Log(ctx, log.LevelInfo, "dispatch loop started",
		log.String("source", dispatcher.cfg.LocalIdentity))

	for {
		message, err := dispatcher.receiver.Recv()
		if err != nil {
			dispatcher.logger.Log(ctx, log.LevelInfo, "dispatch loop stopped",
				log.String("source", dispatcher.cfg.LocalIdentity),
				log.Err(err))

			return &DispatchError{Cause: err}
		}

		dispatcher.received.Add(1)
		dispatcher.addReceived(ctx)

		dispatcher.deliver(ctx, message)
	}
}

// deliver forwards one message and settles its outcome. Failures never
// propagate: the message is dropped and the loop moves on.
func (dispatcher *Dispatcher) deliver(ctx context.Context, message OutboundMessage) {
	ctx, span := dispatcher.tracer.Start(ctx, "dispatch.deliver")
	defer span.End()

	span.SetAttributes(
		attribute.String("dispatch.recipient", message.Recipient()),
		attribute.Int("dispatch.payload_bytes", len(message.Payload())),
	)

	start := time.Now()
	err := dispatcher.sendToNetwork(ctx, message)

	dispatcher.recordDeliveryLatency(ctx, time.Since(start).Seconds())
	dispatcher.recordPayloadSize(ctx, int64(len(message.Payload())))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")

		dispatcher.dropped.Add(1)
		dispatcher.addDropped(ctx)

		dispatcher.logger.Log(ctx, log.LevelWarn, "message delivery failed, message dropped",
			log.String("recipient", message.Recipient()),
			log.Int("payload_bytes", len(message.Payload())),
			log.Err(err))

		if dispatcher.observer != nil {
			dispatcher.observer.MessageDropped(ctx, message.Recipient(), len(message.Payload()), err)
		}

		return
	}

	span.SetStatus(codes.Ok, "")

	dispatcher.delivered.Add(1)
	dispatcher.addDelivered(ctx)

	if dispatcher.observer != nil {
		dispatcher.observer.MessageDelivered(ctx, message.Recipient(), len(message.Payload()))
	}
}

// sendToNetwork shields the loop from a panicking Network implementation by
// converting the panic into a per-message delivery error.
func (dispatcher *Dispatcher) sendToNetwork(ctx context.Context, message OutboundMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("network send panicked: %v", r)
		}
	}()

	return dispatcher.network.Send(ctx, message.Recipient(), message.Payload())
}

// Running reports whether the dispatch loop is currently executing.
func (dispatcher *Dispatcher) Running() bool {
	if dispatcher == nil {
		return false
	}

	dispatcher.runStateMu.Lock()
	defer dispatcher.runStateMu.Unlock()

	return dispatcher.running
}

// Stats returns a snapshot of the dispatcher counters. Safe to call from any
// goroutine while the loop runs.
func (dispatcher *Dispatcher) Stats() DispatchStats {
	if dispatcher == nil {
		return DispatchStats{}
	}

	return DispatchStats{
		Received:  dispatcher.received.Load(),
		Delivered: dispatcher.delivered.Load(),
		Dropped:   dispatcher.dropped.Load(),
	}
}

// Shutdown tears down the receiver side and waits for the loop to exit,
// bounded by ctx and the configured drain timeout. Messages still enqueued
// are abandoned; prefer closing every Sender handle when the queue should
// drain first.
func (dispatcher *Dispatcher) Shutdown(ctx context.Context) error {
	if dispatcher == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := dispatcher.receiver.Close(); err != nil {
		dispatcher.logger.Log(ctx, log.LevelWarn, "receiver close failed during shutdown", log.Err(err))
	}

	done := make(chan struct{})

	runtime.SafeGo(dispatcher.logger, "dispatch.shutdown_wait", func() {
		dispatcher.loopWg.Wait()
		close(done)
	})

	timer := time.NewTimer(dispatcher.cfg.DrainTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("dispatcher shutdown: %w", ErrShutdownTimeout)
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

// registerRun flips the running flag and joins the loop wait group in one
// critical section, so Shutdown's Wait can never race a concurrent Add.
func (dispatcher *Dispatcher) registerRun() bool {
	dispatcher.runStateMu.Lock()
	defer dispatcher.runStateMu.Unlock()

	if dispatcher.running {
		return false
	}

	dispatcher.running = true
	dispatcher.loopWg.Add(1)

	return true
}

func (dispatcher *Dispatcher) clearRun() {
	dispatcher.runStateMu.Lock()
	defer dispatcher.runStateMu.Unlock()

	dispatcher.running = false
}

func (dispatcher *Dispatcher) addReceived(ctx context.Context) {
	if dispatcher.metrics.messagesReceived == nil {
		return
	}

	dispatcher.metrics.messagesReceived.Add(ctx, 1)
}

func (dispatcher *Dispatcher) addDelivered(ctx context.Context) {
	if dispatcher.metrics.messagesDelivered == nil {
		return
	}

	dispatcher.metrics.messagesDelivered.Add(ctx, 1)
}

func (dispatcher *Dispatcher) addDropped(ctx context.Context) {
	if dispatcher.metrics.messagesDropped == nil {
		return
	}

	dispatcher.metrics.messagesDropped.Add(ctx, 1)
}

func (dispatcher *Dispatcher) recordDeliveryLatency(ctx context.Context, latencySeconds float64) {
	if dispatcher.metrics.deliveryLatency == nil {
		return
	}

	dispatcher.metrics.deliveryLatency.Record(ctx, latencySeconds)
}

func (dispatcher *Dispatcher) recordPayloadSize(ctx context.Context, sizeBytes int64) {
	if dispatcher.metrics.payloadSize == nil {
		return
	}

	dispatcher.metrics.payloadSize.Record(ctx, sizeBytes)
}
