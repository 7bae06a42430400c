//go:build unit

package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/lib-dispatch/dispatch"
)

type flakyNetwork struct {
	mu      sync.Mutex
	failing bool
	calls   int
}

func (f *flakyNetwork) Send(_ context.Context, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.failing {
		return errors.New("transport down")
	}

	return nil
}

func (f *flakyNetwork) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failing = failing
}

func (f *flakyNetwork) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// testConfig trips after 3 consecutive failures and recovers quickly so
// tests stay fast.
func testConfig() Config {
	return Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             50 * time.Millisecond,
		ConsecutiveFailures: 3,
		FailureRatio:        0.5,
		MinRequests:         100,
	}
}

func TestWrap_NilNetwork(t *testing.T) {
	t.Parallel()

	network, err := Wrap(nil)
	assert.Nil(t, network)
	assert.ErrorIs(t, err, ErrNetworkRequired)

	var nilNetwork *flakyNetwork

	network, err = Wrap(nilNetwork)
	assert.Nil(t, network)
	assert.ErrorIs(t, err, ErrNetworkRequired)
}

func TestNetwork_Send_PassesThroughWhileClosed(t *testing.T) {
	t.Parallel()

	next := &flakyNetwork{}

	network, err := Wrap(next, WithConfig(testConfig()))
	require.NoError(t, err)

	require.NoError(t, network.Send(t.Context(), "peer-1", []byte("a")))
	assert.Equal(t, 1, next.callCount())
	assert.Equal(t, StateClosed, network.State())
}

func TestNetwork_Send_ReturnsWrappedFailure(t *testing.T) {
	t.Parallel()

	next := &flakyNetwork{failing: true}

	network, err := Wrap(next, WithConfig(testConfig()))
	require.NoError(t, err)

	err = network.Send(t.Context(), "peer-1", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorContains(t, err, "transport down")
}

func TestNetwork_TripsAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	next := &flakyNetwork{failing: true}

	network, err := Wrap(next, WithConfig(testConfig()))
	require.NoError(t, err)

	for range 3 {
		require.Error(t, network.Send(t.Context(), "peer-1", nil))
	}

	require.Equal(t, StateOpen, network.State())

	callsWhenOpen := next.callCount()

	err = network.Send(t.Context(), "peer-1", nil)
	require.ErrorIs(t, err, ErrCircuitOpen)

	// Open circuit must not touch the wrapped transport.
	assert.Equal(t, callsWhenOpen, next.callCount())
}

func TestNetwork_RecoversThroughHalfOpen(t *testing.T) {
	t.Parallel()

	next := &flakyNetwork{failing: true}

	cfg := testConfig()

	network, err := Wrap(next, WithConfig(cfg))
	require.NoError(t, err)

	for range 3 {
		require.Error(t, network.Send(t.Context(), "peer-1", nil))
	}

	require.Equal(t, StateOpen, network.State())

	next.setFailing(false)

	// After the open timeout the breaker admits trial sends again.
	require.Eventually(t, func() bool {
		return network.Send(t.Context(), "peer-1", nil) == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, StateClosed, network.State())

	require.NoError(t, network.Send(t.Context(), "peer-1", nil))
}

func TestNetwork_Counts(t *testing.T) {
	t.Parallel()

	next := &flakyNetwork{}

	network, err := Wrap(next, WithConfig(testConfig()))
	require.NoError(t, err)

	require.NoError(t, network.Send(t.Context(), "peer-1", nil))
	require.NoError(t, network.Send(t.Context(), "peer-2", nil))

	counts := network.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(2), counts.TotalSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)
}
