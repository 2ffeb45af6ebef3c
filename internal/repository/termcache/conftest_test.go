package termcache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/absola/internal/db"
	"github.com/kailas-cloud/absola/internal/domain"
)

type mockLookup struct {
	result domain.TermExplanation
	err    error
	calls  int
}

func (m *mockLookup) LookupTerm(_ context.Context, _ string) (domain.TermExplanation, error) {
	m.calls++
	return m.result, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedLookup(t *testing.T, inner domain.TermLookup) (*CachedLookup, *mockKVStore, *prometheus.CounterVec) {
	t.Helper()
	ms := &mockKVStore{}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_term_cache_total",
	}, []string{"result"})
	return New(inner, ms, 24*time.Hour, counter, zap.NewNop()), ms, counter
}
