package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func testChallenge(code string) Challenge {
	now := time.Now()
	return Challenge{
		IdentityKey: "+84912345678",
		Purpose:     PurposeRegister,
		Code:        code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}
}

func TestRedisStorePutGet(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("123456")); err != nil {
		t.Fatalf("put: %v", err)
	}

	ch, err := store.Get(ctx, "+84912345678", PurposeRegister)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ch.Code != "123456" || ch.Attempts != 0 || ch.Consumed {
		t.Fatalf("unexpected challenge state: %+v", ch)
	}

	// Other purposes are separate pairs.
	if _, err := store.Get(ctx, "+84912345678", PurposeLogin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other purpose, got %v", err)
	}
}

func TestRedisStorePutReplacesState(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("123456")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.RecordAttempt(ctx, "+84912345678", PurposeRegister); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if _, err := store.Consume(ctx, "+84912345678", PurposeRegister); err != nil {
		t.Fatalf("consume: %v", err)
	}

	// Reissue wipes attempts and the consumed marker.
	if err := store.Put(ctx, testChallenge("654321")); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	ch, err := store.Get(ctx, "+84912345678", PurposeRegister)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ch.Code != "654321" || ch.Attempts != 0 || ch.Consumed {
		t.Fatalf("expected fresh state after reissue: %+v", ch)
	}
}

func TestRedisStoreRecordAttempt(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("123456")); err != nil {
		t.Fatalf("put: %v", err)
	}

	for want := 1; want <= 3; want++ {
		n, err := store.RecordAttempt(ctx, "+84912345678", PurposeRegister)
		if err != nil {
			t.Fatalf("record attempt: %v", err)
		}
		if n != want {
			t.Fatalf("expected count %d, got %d", want, n)
		}
	}

	ch, err := store.Get(ctx, "+84912345678", PurposeRegister)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ch.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", ch.Attempts)
	}
}

func TestRedisStoreConsumeOnce(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("123456")); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err := store.Consume(ctx, "+84912345678", PurposeRegister)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !ok {
		t.Fatalf("first consume should succeed")
	}

	ok, err = store.Consume(ctx, "+84912345678", PurposeRegister)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if ok {
		t.Fatalf("second consume must not succeed")
	}

	ch, err := store.Get(ctx, "+84912345678", PurposeRegister)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ch.Consumed {
		t.Fatalf("expected consumed challenge")
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("123456")); err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.FastForward(6 * time.Minute)

	if _, err := store.Get(ctx, "+84912345678", PurposeRegister); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testChallenge("123456")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "+84912345678", PurposeRegister); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "+84912345678", PurposeRegister); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
