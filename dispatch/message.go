package dispatch

// OutboundMessage carries one opaque payload destined for a named peer.
//
// Messages are immutable after construction. The recipient is not validated
// here; an empty or unknown recipient surfaces only as a delivery error from
// the Network collaborator.
type OutboundMessage struct {
	recipient string
	payload   []byte
}

// NewOutboundMessage builds a message for recipient. The payload is copied,
// so the caller may reuse its slice after construction.
func NewOutboundMessage(recipient string, payload []byte) OutboundMessage {
	message := OutboundMessage{recipient: recipient}

	if len(payload) > 0 {
		message.payload = make([]byte, len(payload))
		copy(message.payload, payload)
	}

	return message
}

// Recipient returns the peer identifier the message is addressed to.
func (message OutboundMessage) Recipient() string {
	return message.recipient
}

// Payload returns the message bytes. The slice is shared with the message
// and must be treated as read-only; use Clone for an independent copy.
func (message OutboundMessage) Payload() []byte {
	return message.payload
}

// Clone returns an independent copy with its own payload bytes, for callers
// that fan out or resubmit a message.
func (message OutboundMessage) Clone() OutboundMessage {
	return NewOutboundMessage(message.recipient, message.payload)
}
