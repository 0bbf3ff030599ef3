package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeIdempotencyStore struct {
	reserveFn  func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error)
	completed  map[string][]byte
	released   []string
	reservedAs []string
}

func (f *fakeIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	f.reservedAs = append(f.reservedAs, key)
	if f.reserveFn != nil {
		return f.reserveFn(ctx, key, ttl)
	}
	return true, nil, nil
}

func (f *fakeIdempotencyStore) Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if f.completed == nil {
		f.completed = map[string][]byte{}
	}
	f.completed[key] = response
	return nil
}

func (f *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

func restoreRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities/a-1/restore", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, key)
	req.Header.Set(UserIDHeader, "u-1")
	req.Header.Set(TenantIDHeader, "t-1")
	return req
}

func TestIdempotencyMiddleware_FailsClosedOnStoreErrors(t *testing.T) {
	var called bool
	store := &fakeIdempotencyStore{
		reserveFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			return false, nil, context.DeadlineExceeded
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, restoreRequest("key-err"))

	if called {
		t.Fatalf("handler should not be called when store errors")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_StoresSuccessUnderTenantKey(t *testing.T) {
	store := &fakeIdempotencyStore{}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	handler := Actor(mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"entity_id":"s-1"}`))
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, restoreRequest("k1"))

	stored, ok := store.completed["t-1:k1"]
	if !ok {
		t.Fatalf("expected response stored under tenant-scoped key, reserved=%v", store.reservedAs)
	}
	var resp storedResponse
	if err := json.Unmarshal(stored, &resp); err != nil {
		t.Fatalf("stored response unreadable: %v", err)
	}
	if resp.Status != http.StatusOK || string(resp.Body) != `{"entity_id":"s-1"}` {
		t.Fatalf("unexpected stored response: %+v", resp)
	}
}

func TestIdempotencyMiddleware_ReleasesFailedResponses(t *testing.T) {
	store := &fakeIdempotencyStore{}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})).ServeHTTP(rr, restoreRequest("key-fail"))

	if len(store.completed) != 0 {
		t.Fatalf("expected error responses not to be cached")
	}
	if len(store.released) != 1 || store.released[0] != "key-fail" {
		t.Fatalf("expected key to be released, got %v", store.released)
	}
}

func TestIdempotencyMiddleware_ReplaysStoredResponse(t *testing.T) {
	payload, _ := json.Marshal(storedResponse{Status: http.StatusOK, Body: json.RawMessage(`{"entity_id":"s-1"}`)})
	store := &fakeIdempotencyStore{
		reserveFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			return false, payload, nil
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	var called bool
	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, restoreRequest("dup"))

	if called {
		t.Fatalf("handler must not run on replay")
	}
	if rr.Header().Get(IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if rr.Body.String() != `{"entity_id":"s-1"}` {
		t.Fatalf("unexpected replay body %q", rr.Body.String())
	}
}

func TestIdempotencyMiddleware_InFlightConflict(t *testing.T) {
	store := &fakeIdempotencyStore{
		reserveFn: func(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
			return false, nil, nil
		},
	}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.NotFoundHandler()).ServeHTTP(rr, restoreRequest("busy"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for in-flight key, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_SkipsReadsAndUnkeyedRequests(t *testing.T) {
	store := &fakeIdempotencyStore{}
	mw := NewIdempotencyMiddleware(store, zerolog.Nop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	get := httptest.NewRequest(http.MethodGet, "/api/v1/activities", nil)
	get.Header.Set(IdempotencyKeyHeader, "k")
	mw.Wrap(ok).ServeHTTP(httptest.NewRecorder(), get)

	post := httptest.NewRequest(http.MethodPost, "/api/v1/activities/a-1/restore", nil)
	mw.Wrap(ok).ServeHTTP(httptest.NewRecorder(), post)

	if len(store.reservedAs) != 0 {
		t.Fatalf("store should not be consulted, got %v", store.reservedAs)
	}
}
