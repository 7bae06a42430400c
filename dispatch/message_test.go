//go:build unit

package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOutboundMessage_CopiesPayload(t *testing.T) {
	t.Parallel()

	payload := []byte("hello")

	message := NewOutboundMessage("peer-1", payload)

	payload[0] = 'X'

	assert.Equal(t, []byte("hello"), message.Payload())
}

func TestOutboundMessage_Accessors(t *testing.T) {
	t.Parallel()

	message := NewOutboundMessage("peer-1", []byte{0x01, 0x02})

	assert.Equal(t, "peer-1", message.Recipient())
	assert.Equal(t, []byte{0x01, 0x02}, message.Payload())
}

func TestNewOutboundMessage_NoValidation(t *testing.T) {
	t.Parallel()

	// An empty recipient or payload is accepted; only a Network can decide
	// what is deliverable.
	message := NewOutboundMessage("", nil)

	assert.Empty(t, message.Recipient())
	assert.Nil(t, message.Payload())
}

func TestOutboundMessage_Clone(t *testing.T) {
	t.Parallel()

	original := NewOutboundMessage("peer-1", []byte("hello"))
	clone := original.Clone()

	assert.Equal(t, original.Recipient(), clone.Recipient())
	assert.Equal(t, original.Payload(), clone.Payload())

	// The clone owns its bytes.
	clone.Payload()[0] = 'X'

	assert.Equal(t, []byte("hello"), original.Payload())
}
