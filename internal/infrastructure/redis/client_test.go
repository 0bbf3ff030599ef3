package redis

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewClientSuccess(t *testing.T) {
	s := miniredis.RunT(t)

	ctx := context.Background()
	client, err := NewClient(ctx, fmt.Sprintf("redis://%s/2", s.Addr()))
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	defer client.Close()

	if err := Ping(client)(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if client.Options().DB != 2 {
		t.Fatalf("expected database 2 from URL, got %d", client.Options().DB)
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient(context.Background(), "://bad-url"); err == nil {
		t.Fatalf("expected error for invalid URL")
	}
}

func TestNewClientPingFailure(t *testing.T) {
	s := miniredis.RunT(t)
	url := fmt.Sprintf("redis://%s", s.Addr())
	s.Close()

	if _, err := NewClient(context.Background(), url); err == nil {
		t.Fatalf("expected ping error when server is down")
	}
}

func TestPingReportsOutage(t *testing.T) {
	s := miniredis.RunT(t)
	client, err := NewClient(context.Background(), fmt.Sprintf("redis://%s", s.Addr()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	s.Close()
	if err := Ping(client)(context.Background()); err == nil {
		t.Fatalf("expected ping to fail after server shutdown")
	}
}
