package mapcache

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeStore struct {
	mu    sync.Mutex
	value string
	err   error
	calls int
}

func (f *fakeStore) GetParameter(ctx context.Context, path string) (string, error) {
	_ = ctx
	_ = path
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.value, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestGetCachesWithinTTL(t *testing.T) {
	store := &fakeStore{value: `{"abc123":"tenantA"}`}
	now := time.Unix(1700000000, 0)
	c := New(store, "/maps/clients",
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return now }))

	got := c.Get(context.Background())
	if got["abc123"] != "tenantA" {
		t.Fatalf("expected tenantA, got %q", got["abc123"])
	}
	if store.callCount() != 1 {
		t.Fatalf("expected 1 store read, got %d", store.callCount())
	}

	// Within the TTL the cached data is served with no store read.
	if v, ok := c.Lookup(context.Background(), "abc123"); !ok || v != "tenantA" {
		t.Fatalf("lookup within TTL failed: %q %v", v, ok)
	}
	if store.callCount() != 1 {
		t.Fatalf("expected no refresh within TTL, got %d reads", store.callCount())
	}

	// After expiry exactly one refresh happens.
	now = now.Add(DefaultTTL + time.Second)
	c.Get(context.Background())
	if store.callCount() != 2 {
		t.Fatalf("expected refresh after TTL, got %d reads", store.callCount())
	}
}

func TestStaleServedOnRefreshFailure(t *testing.T) {
	store := &fakeStore{value: `{"tenantA":"key-789"}`}
	now := time.Unix(1700000000, 0)
	c := New(store, "/maps/keys",
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return now }))

	c.Get(context.Background())
	store.setErr(errors.New("store down"))
	now = now.Add(DefaultTTL + time.Second)

	got := c.Get(context.Background())
	if got["tenantA"] != "key-789" {
		t.Fatalf("expected stale data to be served, got %v", got)
	}
	if store.callCount() != 2 {
		t.Fatalf("expected a refresh attempt, got %d reads", store.callCount())
	}

	// Expiry was not extended: the next call retries instead of waiting
	// out a fresh TTL window.
	c.Get(context.Background())
	if store.callCount() != 3 {
		t.Fatalf("expected another refresh attempt, got %d reads", store.callCount())
	}
}

func TestEmptyBeforeFirstLoad(t *testing.T) {
	store := &fakeStore{err: errors.New("store down")}
	c := New(store, "/maps/clients", WithLogger(discardLogger()))

	got := c.Get(context.Background())
	if len(got) != 0 {
		t.Fatalf("expected empty mapping, got %v", got)
	}
	if _, ok := c.Lookup(context.Background(), "abc123"); ok {
		t.Fatal("lookup against empty mapping should miss")
	}
}

func TestMalformedPayloadServesStale(t *testing.T) {
	store := &fakeStore{value: `{"abc123":"tenantA"}`}
	now := time.Unix(1700000000, 0)
	c := New(store, "/maps/clients",
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return now }))

	c.Get(context.Background())
	store.mu.Lock()
	store.value = "not json"
	store.mu.Unlock()
	now = now.Add(DefaultTTL + time.Second)

	got := c.Get(context.Background())
	if got["abc123"] != "tenantA" {
		t.Fatalf("expected stale data after parse failure, got %v", got)
	}
}

func TestEmptyMappingRefreshesEagerly(t *testing.T) {
	// An empty (but valid) mapping is not treated as a good cache fill:
	// the next call retries rather than serving {} for a full TTL.
	store := &fakeStore{value: `{}`}
	now := time.Unix(1700000000, 0)
	c := New(store, "/maps/clients",
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return now }))

	c.Get(context.Background())
	c.Get(context.Background())
	if store.callCount() != 2 {
		t.Fatalf("expected empty mapping to retry, got %d reads", store.callCount())
	}
}
