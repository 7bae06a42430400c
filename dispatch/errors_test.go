//go:build unit

package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchError_Error(t *testing.T) {
	t.Parallel()

	err := &DispatchError{Cause: ErrQueueDisconnected}
	assert.Equal(t, "dispatch loop terminated: queue is disconnected", err.Error())

	empty := &DispatchError{}
	assert.Equal(t, "dispatch loop terminated", empty.Error())
}

func TestDispatchError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("%w: receive from redis list %q", ErrQueueDisconnected, "outbound")
	err := &DispatchError{Cause: cause}

	assert.ErrorIs(t, err, ErrQueueDisconnected)

	var dispatchErr *DispatchError

	require.ErrorAs(t, error(err), &dispatchErr)
	assert.Equal(t, cause, dispatchErr.Cause)
}

func TestDispatchError_AsFromWrappedChain(t *testing.T) {
	t.Parallel()

	inner := &DispatchError{Cause: ErrQueueDisconnected}
	wrapped := fmt.Errorf("run worker: %w", inner)

	var dispatchErr *DispatchError

	require.ErrorAs(t, wrapped, &dispatchErr)
	assert.ErrorIs(t, dispatchErr, ErrQueueDisconnected)
}

func TestQueueSentinelsAreDistinct(t *testing.T) {
	t.Parallel()

	assert.NotErrorIs(t, ErrQueueEmpty, ErrQueueDisconnected)
	assert.NotErrorIs(t, ErrQueueDisconnected, ErrQueueEmpty)
	assert.False(t, errors.Is(ErrQueueFull, ErrQueueEmpty))
	assert.False(t, errors.Is(ErrSenderClosed, ErrQueueDisconnected))
}
