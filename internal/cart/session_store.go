package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore holds anonymous carts keyed by session id.
type SessionStore interface {
	Quantity(ctx context.Context, sessionID string, productID int64) (int, error)
	Add(ctx context.Context, sessionID string, productID int64, qty int) (int, error)
	Lines(ctx context.Context, sessionID string) ([]Line, error)
	// Take returns the session's lines and deletes them in one step.
	Take(ctx context.Context, sessionID string) ([]Line, error)
	// Restore adds lines back after a Take whose merge did not commit.
	Restore(ctx context.Context, sessionID string, lines []Line) error
	Clear(ctx context.Context, sessionID string) error
}

// RedisSessionStore keeps each session cart in a hash of product id to
// quantity. Every write refreshes the key's TTL.
type RedisSessionStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{client: client, baseTTL: ttl}
}

func (s *RedisSessionStore) Quantity(ctx context.Context, sessionID string, productID int64) (int, error) {
	n, err := s.client.HGet(ctx, sessionKey(sessionID), field(productID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis hget failed: %w", err)
	}
	return n, nil
}

func (s *RedisSessionStore) Add(ctx context.Context, sessionID string, productID int64, qty int) (int, error) {
	key := sessionKey(sessionID)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, field(productID), int64(qty))
		pipe.Expire(ctx, key, s.ttl())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis hincrby failed: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisSessionStore) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	raw, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	return decodeLines(raw)
}

func (s *RedisSessionStore) Take(ctx context.Context, sessionID string) ([]Line, error) {
	key := sessionKey(sessionID)

	var all *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		all = pipe.HGetAll(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis take failed: %w", err)
	}
	return decodeLines(all.Val())
}

func (s *RedisSessionStore) Restore(ctx context.Context, sessionID string, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	key := sessionKey(sessionID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, l := range lines {
			pipe.HIncrBy(ctx, key, field(l.ProductID), int64(l.Quantity))
		}
		pipe.Expire(ctx, key, s.ttl())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis restore failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) ttl() time.Duration {
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return s.baseTTL + jitter
}

func decodeLines(raw map[string]string) ([]Line, error) {
	lines := make([]Line, 0, len(raw))
	for k, v := range raw {
		pid, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session cart product %q: %w", k, err)
		}
		qty, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("decode session cart quantity %q: %w", v, err)
		}
		lines = append(lines, Line{ProductID: pid, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func field(productID int64) string {
	return strconv.FormatInt(productID, 10)
}
