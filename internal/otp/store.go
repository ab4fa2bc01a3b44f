package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds active challenges keyed by (identity key, purpose). Expired
// records are treated as absent even if not yet physically purged.
// RecordAttempt and Consume must be atomic per key so concurrent
// verifications cannot lose updates or both succeed.
type Store interface {
	Put(ctx context.Context, ch Challenge) error
	Get(ctx context.Context, identityKey string, purpose Purpose) (Challenge, error)
	Delete(ctx context.Context, identityKey string, purpose Purpose) error
	RecordAttempt(ctx context.Context, identityKey string, purpose Purpose) (int, error)
	Consume(ctx context.Context, identityKey string, purpose Purpose) (bool, error)
}

const (
	challengePrefix = "otp:challenge:"
	attemptsPrefix  = "otp:attempts:"
	consumedPrefix  = "otp:consumed:"
)

type storedChallenge struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisStore implements Store on Redis. The challenge record, its attempt
// counter and its consumed marker live under separate keys sharing the
// challenge TTL; INCR and SETNX give the per-key atomicity Verify relies on.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore builds a Redis-backed challenge store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func pairKey(prefix, identityKey string, purpose Purpose) string {
	return prefix + string(purpose) + ":" + identityKey
}

// Put inserts or replaces the active challenge for the pair. Attempt and
// consumed state of any prior challenge are cleared so the old code becomes
// immediately unusable.
func (s *RedisStore) Put(ctx context.Context, ch Challenge) error {
	ttl := ch.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired")
	}

	payload, err := json.Marshal(storedChallenge{Code: ch.Code, CreatedAt: ch.CreatedAt, ExpiresAt: ch.ExpiresAt})
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, pairKey(challengePrefix, ch.IdentityKey, ch.Purpose), payload, ttl)
	pipe.Del(ctx, pairKey(attemptsPrefix, ch.IdentityKey, ch.Purpose))
	pipe.Del(ctx, pairKey(consumedPrefix, ch.IdentityKey, ch.Purpose))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

// Get returns the challenge for the pair, or ErrNotFound when absent or
// expired. Redis TTL handles physical expiry; the timestamp check covers the
// window between logical and physical expiry.
func (s *RedisStore) Get(ctx context.Context, identityKey string, purpose Purpose) (Challenge, error) {
	raw, err := s.client.Get(ctx, pairKey(challengePrefix, identityKey, purpose)).Result()
	if err == redis.Nil {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("fetch challenge: %w", err)
	}

	var stored storedChallenge
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}

	ch := Challenge{
		IdentityKey: identityKey,
		Purpose:     purpose,
		Code:        stored.Code,
		CreatedAt:   stored.CreatedAt,
		ExpiresAt:   stored.ExpiresAt,
	}
	if ch.Expired(s.now()) {
		return Challenge{}, ErrNotFound
	}

	attempts, err := s.client.Get(ctx, pairKey(attemptsPrefix, identityKey, purpose)).Int()
	if err != nil && err != redis.Nil {
		return Challenge{}, fmt.Errorf("fetch attempts: %w", err)
	}
	ch.Attempts = attempts

	consumed, err := s.client.Exists(ctx, pairKey(consumedPrefix, identityKey, purpose)).Result()
	if err != nil {
		return Challenge{}, fmt.Errorf("fetch consumed marker: %w", err)
	}
	ch.Consumed = consumed > 0

	return ch, nil
}

// Delete removes the challenge and its verification state.
func (s *RedisStore) Delete(ctx context.Context, identityKey string, purpose Purpose) error {
	return s.client.Del(ctx,
		pairKey(challengePrefix, identityKey, purpose),
		pairKey(attemptsPrefix, identityKey, purpose),
		pairKey(consumedPrefix, identityKey, purpose),
	).Err()
}

// RecordAttempt atomically increments the attempt counter and returns the new
// count. The counter expires with the challenge.
func (s *RedisStore) RecordAttempt(ctx context.Context, identityKey string, purpose Purpose) (int, error) {
	key := pairKey(attemptsPrefix, identityKey, purpose)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	if n == 1 {
		ttl, err := s.client.TTL(ctx, pairKey(challengePrefix, identityKey, purpose)).Result()
		if err == nil && ttl > 0 {
			s.client.Expire(ctx, key, ttl)
		}
	}
	return int(n), nil
}

// Consume atomically marks the challenge consumed. It returns false when a
// concurrent verification consumed it first.
func (s *RedisStore) Consume(ctx context.Context, identityKey string, purpose Purpose) (bool, error) {
	ttl, err := s.client.TTL(ctx, pairKey(challengePrefix, identityKey, purpose)).Result()
	if err != nil || ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := s.client.SetNX(ctx, pairKey(consumedPrefix, identityKey, purpose), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume challenge: %w", err)
	}
	return ok, nil
}
