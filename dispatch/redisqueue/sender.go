package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LerianStudio/lib-dispatch/dispatch"
	"github.com/LerianStudio/lib-dispatch/dispatch/log"
)

// redisSender is one handle of the producer half. Clones share the refcount
// in senderShared so the disconnect marker goes out exactly once, when the
// last local handle closes.
type redisSender struct {
	shared *senderShared

	mu     sync.Mutex
	closed bool
}

// Send pushes the message onto the head of the list. Redis transport
// failures are returned as-is; a sender cannot observe whether a remote
// receiver still exists.
func (s *redisSender) Send(message dispatch.OutboundMessage) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return dispatch.ErrSenderClosed
	}

	return s.shared.push(envelope{
		ID:        uuid.New().String(),
		Recipient: message.Recipient(),
		Payload:   message.Payload(),
		SentAt:    time.Now().UTC(),
	})
}

// Clone returns a new handle over the same list. Cloning a closed handle
// yields a closed handle.
//
//nolint:ireturn
func (s *redisSender) Clone() dispatch.Sender[dispatch.OutboundMessage] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.shared.mu.Lock()
		s.shared.handles++
		s.shared.mu.Unlock()
	}

	return &redisSender{shared: s.shared, closed: s.closed}
}

// Close releases this handle. The last handle to close pushes the disconnect
// marker. Close is idempotent per handle.
func (s *redisSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.shared.release()
}

func (shared *senderShared) push(env envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal queue envelope: %w", err)
	}

	if err := shared.client.LPush(context.Background(), shared.key, raw).Err(); err != nil {
		return fmt.Errorf("push to redis list %q: %w", shared.key, err)
	}

	return nil
}

func (shared *senderShared) release() error {
	shared.mu.Lock()
	shared.handles--
	last := shared.handles == 0
	shared.mu.Unlock()

	if !last {
		return nil
	}

	err := shared.push(envelope{
		ID:         uuid.New().String(),
		SentAt:     time.Now().UTC(),
		Disconnect: true,
	})
	if err != nil {
		shared.logger.Log(context.Background(), log.LevelWarn, "failed to push disconnect marker",
			log.String("key", shared.key),
			log.Err(err),
		)

		return fmt.Errorf("close redis queue sender: %w", err)
	}

	return nil
}
