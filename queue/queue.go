package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Queue is a named task queue backed by a Redis list. Producers RPUSH
// JSON-serialized payloads; consumers BLPOP them. Delivery is at-least-once:
// a message popped by a crashing worker is lost to that worker but duplicates
// from retried publishes are possible, so handlers must tolerate both.
type Queue struct {
	redis       *redis.Client
	pollTimeout time.Duration
}

// Handler processes one raw message. A returned error drops the message after
// logging; there is no redelivery.
type Handler func(ctx context.Context, payload []byte) error

// New creates a queue facade over the given Redis client. pollSeconds bounds
// how long a consumer blocks per BLPOP before rechecking its context.
func New(redisClient *redis.Client, pollSeconds int) *Queue {
	if pollSeconds <= 0 {
		pollSeconds = 1
	}
	return &Queue{
		redis:       redisClient,
		pollTimeout: time.Duration(pollSeconds) * time.Second,
	}
}

// Publish appends one task to the named queue. A failed publish is returned
// to the caller; nothing is retried here.
func (q *Queue) Publish(ctx context.Context, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.redis.RPush(ctx, name, data).Err()
}

// Consume pops and handles messages from the named queue until the context is
// canceled. Handler failures and undecodable messages are logged and dropped;
// malformed input would never succeed on redelivery.
func (q *Queue) Consume(ctx context.Context, name string, handler Handler) {
	log.Info().Str("queue", name).Msg("Queue consumer started")

	for {
		if ctx.Err() != nil {
			log.Info().Str("queue", name).Msg("Queue consumer stopped")
			return
		}

		result, err := q.redis.BLPop(ctx, q.pollTimeout, name).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Error().Err(err).Str("queue", name).Msg("Failed to pop task")
			// Back off briefly so a dead Redis does not spin the loop
			select {
			case <-ctx.Done():
			case <-time.After(q.pollTimeout):
			}
			continue
		}

		// BLPop returns [key, value]
		if len(result) != 2 {
			continue
		}

		if err := handler(ctx, []byte(result[1])); err != nil {
			log.Error().Err(err).Str("queue", name).Msg("Task failed, dropping message")
		}
	}
}
