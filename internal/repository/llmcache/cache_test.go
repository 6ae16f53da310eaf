package llmcache

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ovunque/nlsearch/internal/db"
)

type mockLLM struct {
	reply string
	err   error
	calls int
}

func (m *mockLLM) Complete(_ context.Context, _, _ string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func newTestCache(inner *mockLLM) (*CachedLLM, *mockKVStore) {
	ms := &mockKVStore{}
	return New(inner, ms, "nlsearch:", nil, zap.NewNop()), ms
}

func TestComplete_MissThenStore(t *testing.T) {
	inner := &mockLLM{reply: "[('active', '=', True)]"}
	cache, ms := newTestCache(inner)

	var storedKey string
	var storedValue []byte
	ms.setFn = func(_ context.Context, key string, value []byte) error {
		storedKey = key
		storedValue = value
		return nil
	}

	reply, err := cache.Complete(context.Background(), "system", "active products")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != inner.reply || inner.calls != 1 {
		t.Errorf("reply = %q, calls = %d", reply, inner.calls)
	}
	if storedKey == "" || string(storedValue) != inner.reply {
		t.Errorf("stored %q at %q", storedValue, storedKey)
	}
}

func TestComplete_Hit(t *testing.T) {
	inner := &mockLLM{reply: "fresh"}
	cache, ms := newTestCache(inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("cached"), nil
	}

	reply, err := cache.Complete(context.Background(), "system", "query")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "cached" || inner.calls != 0 {
		t.Errorf("reply = %q, inner calls = %d", reply, inner.calls)
	}
}

func TestComplete_KeyIncludesSystemPrompt(t *testing.T) {
	inner := &mockLLM{reply: "ok"}
	cache, ms := newTestCache(inner)

	keys := map[string]bool{}
	ms.setFn = func(_ context.Context, key string, _ []byte) error {
		keys[key] = true
		return nil
	}

	_, _ = cache.Complete(context.Background(), "schema v1", "query")
	_, _ = cache.Complete(context.Background(), "schema v2", "query")

	if len(keys) != 2 {
		t.Errorf("keys = %v, want distinct per system prompt", keys)
	}
}

func TestComplete_StoreFailuresFallThrough(t *testing.T) {
	inner := &mockLLM{reply: "ok"}
	cache, ms := newTestCache(inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		return errors.New("connection reset")
	}

	reply, err := cache.Complete(context.Background(), "system", "query")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "ok" || inner.calls != 1 {
		t.Errorf("reply = %q, calls = %d", reply, inner.calls)
	}
}

func TestComplete_InnerError(t *testing.T) {
	innerErr := errors.New("rate limited")
	inner := &mockLLM{err: innerErr}
	cache, ms := newTestCache(inner)

	stored := false
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		stored = true
		return nil
	}

	_, err := cache.Complete(context.Background(), "system", "query")
	if !errors.Is(err, innerErr) {
		t.Fatalf("err = %v", err)
	}
	if stored {
		t.Error("failed completions must not be cached")
	}
}
