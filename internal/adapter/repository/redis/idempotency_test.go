package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStore_ReserveNewKey(t *testing.T) {
	client, mr := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	reserved, resp, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || !reserved || resp != nil {
		t.Fatalf("unexpected result: reserved=%v resp=%v err=%v", reserved, resp, err)
	}
	if ttl := mr.TTL(store.prefix + "key"); ttl != time.Minute {
		t.Fatalf("expected one minute ttl, got %v", ttl)
	}
}

func TestIdempotencyStore_ReserveInFlight(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}

	reserved, resp, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil {
		t.Fatalf("second reserve failed: %v", err)
	}
	if reserved || resp != nil {
		t.Fatalf("expected in-flight key, got reserved=%v resp=%s", reserved, resp)
	}
}

func TestIdempotencyStore_ReplaysCompletedResponse(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := store.Complete(ctx, "key", []byte(`{"status":200}`), time.Minute); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	reserved, resp, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || reserved {
		t.Fatalf("expected existing key, reserved=%v err=%v", reserved, err)
	}
	if string(resp) != `{"status":200}` {
		t.Fatalf("expected stored response, got %s", resp)
	}
}

func TestIdempotencyStore_ReleaseAllowsRetry(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := store.Release(ctx, "key"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	reserved, _, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || !reserved {
		t.Fatalf("expected key to be free again, reserved=%v err=%v", reserved, err)
	}
}
