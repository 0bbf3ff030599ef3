package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iho/tradeledger/internal/usecase"
)

func TestCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	if _, err := c.Get(ctx, "USD-EUR"); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	if err := c.Set(ctx, "USD-EUR", []byte("0.920000"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "USD-EUR")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "0.920000" {
		t.Fatalf("expected 0.920000, got %s", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache()
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "fresh", []byte("1"), time.Minute)
	_ = c.Set(ctx, "forever", []byte("2"), 0)

	now = now.Add(2 * time.Minute)

	if _, err := c.Get(ctx, "fresh"); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
	if _, err := c.Get(ctx, "forever"); err != nil {
		t.Fatalf("entry without ttl expired: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expired entry not evicted, len=%d", c.Len())
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	value := []byte("1.100000")
	_ = c.Set(ctx, "k", value, time.Hour)
	value[0] = '9'

	got, _ := c.Get(ctx, "k")
	got[1] = 'x'

	again, _ := c.Get(ctx, "k")
	if string(again) != "1.100000" {
		t.Fatalf("cache value was mutated: %s", again)
	}
}

func TestCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	_ = c.Set(ctx, "k", []byte("v"), time.Hour)
	_ = c.Delete(ctx, "k")
	if _, err := c.Get(ctx, "k"); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "k", []byte("v"), time.Hour)
			_, _ = c.Get(ctx, "k")
		}()
	}
	wg.Wait()
}
