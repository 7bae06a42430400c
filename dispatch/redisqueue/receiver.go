package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/LerianStudio/lib-dispatch/dispatch"
	"github.com/LerianStudio/lib-dispatch/dispatch/backoff"
	"github.com/LerianStudio/lib-dispatch/dispatch/log"
)

// redisReceiver is the consumer half. It is safe for one goroutine at a
// time, matching the receiver contract.
type redisReceiver struct {
	client redis.UniversalClient
	key    string
	logger log.Logger
	cfg    Config

	mu           sync.Mutex
	closed       bool
	disconnected bool
}

// Recv blocks until an envelope arrives, the disconnect marker is popped, or
// the receiver is closed. Because BRPOP cannot be interrupted, a concurrent
// Close takes effect within one PollTimeout.
//
// Transient Redis failures are retried with jittered exponential backoff up
// to MaxRecvAttempts; when retries are exhausted the error wraps
// dispatch.ErrQueueDisconnected so the dispatch loop treats a dead broker
// like a closed queue.
func (r *redisReceiver) Recv() (dispatch.OutboundMessage, error) {
	for {
		if err := r.gate(); err != nil {
			return dispatch.OutboundMessage{}, err
		}

		raw, err := r.popBlocking()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Poll timeout with an empty list; re-check state and wait again.
				continue
			}

			return dispatch.OutboundMessage{}, err
		}

		message, ok := r.decode(raw)
		if !ok {
			continue
		}

		return message, nil
	}
}

// TryRecv pops without blocking. An empty list yields
// dispatch.ErrQueueEmpty; transport failures are returned as-is since one
// failed probe says nothing about the queue's state.
func (r *redisReceiver) TryRecv() (dispatch.OutboundMessage, error) {
	for {
		if err := r.gate(); err != nil {
			return dispatch.OutboundMessage{}, err
		}

		raw, err := r.client.RPop(context.Background(), r.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return dispatch.OutboundMessage{}, dispatch.ErrQueueEmpty
			}

			return dispatch.OutboundMessage{}, fmt.Errorf("pop from redis list %q: %w", r.key, err)
		}

		message, ok := r.decode(raw)
		if !ok {
			continue
		}

		return message, nil
	}
}

// Close marks the receiver disconnected. It does not touch the list, so
// envelopes already queued stay in Redis for another receiver.
func (r *redisReceiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	return nil
}

func (r *redisReceiver) gate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.disconnected {
		return dispatch.ErrQueueDisconnected
	}

	return nil
}

func (r *redisReceiver) popBlocking() (string, error) {
	ctx := context.Background()

	var lastErr error

	for attempt := range r.cfg.MaxRecvAttempts {
		if attempt > 0 {
			delay := backoff.ExponentialWithJitter(r.cfg.RetryBase, attempt)
			if delay > r.cfg.RetryMax {
				delay = backoff.FullJitter(r.cfg.RetryMax)
			}

			if err := backoff.SleepWithContext(ctx, delay); err != nil {
				return "", err
			}
		}

		values, err := r.client.BRPop(ctx, r.cfg.PollTimeout, r.key).Result()
		if err == nil {
			// BRPOP returns the key and the popped value.
			return values[1], nil
		}

		if errors.Is(err, redis.Nil) {
			return "", err
		}

		lastErr = err

		r.logger.Log(ctx, log.LevelWarn, "transient redis receive failure",
			log.String("key", r.key),
			log.Int("attempt", attempt+1),
			log.Err(err),
		)
	}

	return "", fmt.Errorf("%w: receive from redis list %q: %w", dispatch.ErrQueueDisconnected, r.key, lastErr)
}

// decode unmarshals one raw envelope. Disconnect markers flip the receiver
// into the disconnected state; malformed entries are logged and skipped so
// one bad producer cannot wedge the queue.
func (r *redisReceiver) decode(raw string) (dispatch.OutboundMessage, bool) {
	var env envelope

	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.logger.Log(context.Background(), log.LevelWarn, "skipping malformed queue envelope",
			log.String("key", r.key),
			log.Err(err),
		)

		return dispatch.OutboundMessage{}, false
	}

	if env.Disconnect {
		r.mu.Lock()
		r.disconnected = true
		r.mu.Unlock()

		return dispatch.OutboundMessage{}, false
	}

	return dispatch.NewOutboundMessage(env.Recipient, env.Payload), true
}
