package dispatch

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type dispatcherMetrics struct {
	messagesReceived  metric.Int64Counter
	messagesDelivered metric.Int64Counter
	messagesDropped   metric.Int64Counter
	deliveryLatency   metric.Float64Histogram
	payloadSize       metric.Int64Histogram
}

// newDispatcherMetrics builds the dispatcher instrument set. Recipient is
// deliberately not a metric attribute: peer identifiers are unbounded and
// would explode cardinality.
func newDispatcherMetrics(provider metric.MeterProvider) (dispatcherMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter("dispatch.dispatcher")

	var (
		metrics dispatcherMetrics
		err     error
	)

	metrics.messagesReceived, err = meter.Int64Counter(
		"dispatch.messages.received",
		metric.WithDescription("Number of messages taken from the queue"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create dispatch.messages.received counter: %w", err)
	}

	metrics.messagesDelivered, err = meter.Int64Counter(
		"dispatch.messages.delivered",
		metric.WithDescription("Number of messages successfully handed to the network"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create dispatch.messages.delivered counter: %w", err)
	}

	metrics.messagesDropped, err = meter.Int64Counter(
		"dispatch.messages.dropped",
		metric.WithDescription("Number of messages dropped after a delivery failure"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create dispatch.messages.dropped counter: %w", err)
	}

	metrics.deliveryLatency, err = meter.Float64Histogram(
		"dispatch.delivery.latency",
		metric.WithDescription("Time taken per network delivery attempt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create dispatch.delivery.latency histogram: %w", err)
	}

	metrics.payloadSize, err = meter.Int64Histogram(
		"dispatch.payload.size",
		metric.WithDescription("Payload size per dispatched message"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return dispatcherMetrics{}, fmt.Errorf("create dispatch.payload.size histogram: %w", err)
	}

	return metrics, nil
}
