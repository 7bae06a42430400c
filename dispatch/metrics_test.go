//go:build unit

package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// failingMeterProvider yields meters that reject one named instrument,
// driving the constructor error paths.
type failingMeterProvider struct {
	noop.MeterProvider

	failInstrument string
}

func (p failingMeterProvider) Meter(string, ...metric.MeterOption) metric.Meter {
	return failingMeter{failInstrument: p.failInstrument}
}

type failingMeter struct {
	noop.Meter

	failInstrument string
}

func (m failingMeter) Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	if name == m.failInstrument {
		return nil, errors.New("instrument rejected")
	}

	return m.Meter.Int64Counter(name, opts...)
}

func (m failingMeter) Float64Histogram(name string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	if name == m.failInstrument {
		return nil, errors.New("instrument rejected")
	}

	return m.Meter.Float64Histogram(name, opts...)
}

func (m failingMeter) Int64Histogram(name string, opts ...metric.Int64HistogramOption) (metric.Int64Histogram, error) {
	if name == m.failInstrument {
		return nil, errors.New("instrument rejected")
	}

	return m.Meter.Int64Histogram(name, opts...)
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] data, got %T", m.Data)
	require.Len(t, sum.DataPoints, 1)

	return sum.DataPoints[0].Value
}

func TestNewDispatcherMetrics_WithSDKProvider(t *testing.T) {
	t.Parallel()

	provider := sdkmetric.NewMeterProvider()

	metrics, err := newDispatcherMetrics(provider)
	require.NoError(t, err)

	assert.NotNil(t, metrics.messagesReceived)
	assert.NotNil(t, metrics.messagesDelivered)
	assert.NotNil(t, metrics.messagesDropped)
	assert.NotNil(t, metrics.deliveryLatency)
	assert.NotNil(t, metrics.payloadSize)
}

func TestNewDispatcherMetrics_DefaultsToGlobalProvider(t *testing.T) {
	t.Parallel()

	metrics, err := newDispatcherMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, metrics.messagesReceived)
}

func TestNewDispatcherMetrics_InstrumentFailure(t *testing.T) {
	t.Parallel()

	for _, instrument := range []string{
		"dispatch.messages.received",
		"dispatch.messages.delivered",
		"dispatch.messages.dropped",
		"dispatch.delivery.latency",
		"dispatch.payload.size",
	} {
		t.Run(instrument, func(t *testing.T) {
			t.Parallel()

			_, err := newDispatcherMetrics(failingMeterProvider{failInstrument: instrument})
			require.Error(t, err)
			assert.ErrorContains(t, err, instrument)
		})
	}
}

func TestNewDispatcher_MetricsFailure(t *testing.T) {
	t.Parallel()

	receiver := newScriptedReceiver(1)
	network := &fakeNetwork{}

	dispatcher, err := NewDispatcher(receiver, network,
		WithMeterProvider(failingMeterProvider{failInstrument: "dispatch.messages.received"}),
	)
	require.Error(t, err)
	assert.Nil(t, dispatcher)
	assert.ErrorContains(t, err, "init dispatch metrics")
}

func TestDispatcher_EmitsCounters(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	receiver := newScriptedReceiver(8)
	network := &fakeNetwork{failFor: map[string]error{"peer-2": errors.New("unreachable")}}

	dispatcher, err := NewDispatcher(receiver, network, WithMeterProvider(provider))
	require.NoError(t, err)

	receiver.queue(NewOutboundMessage("peer-1", []byte("a")))
	receiver.queue(NewOutboundMessage("peer-2", []byte("b")))
	receiver.queue(NewOutboundMessage("peer-3", []byte("c")))
	receiver.disconnect()

	err = dispatcher.Run(t.Context())
	require.ErrorIs(t, err, ErrQueueDisconnected)

	rm := collectMetrics(t, reader)

	received := findMetricByName(rm, "dispatch.messages.received")
	require.NotNil(t, received)
	assert.Equal(t, int64(3), sumValue(t, received))

	delivered := findMetricByName(rm, "dispatch.messages.delivered")
	require.NotNil(t, delivered)
	assert.Equal(t, int64(2), sumValue(t, delivered))

	dropped := findMetricByName(rm, "dispatch.messages.dropped")
	require.NotNil(t, dropped)
	assert.Equal(t, int64(1), sumValue(t, dropped))

	latency := findMetricByName(rm, "dispatch.delivery.latency")
	require.NotNil(t, latency)

	histogram, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram[float64] data, got %T", latency.Data)
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, uint64(3), histogram.DataPoints[0].Count)
}
