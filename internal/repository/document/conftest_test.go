package document

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/kailas-cloud/absola/internal/db"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetIfEqualFn  func(ctx context.Context, key, field, expected string, fields map[string]string) (string, bool, error)
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	zaddFn         func(ctx context.Context, key string, score float64, member string) error
	zrevRangeFn    func(ctx context.Context, key string) ([]string, error)
	zremFn         func(ctx context.Context, key string, members ...string) error
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetIfEqual(
	ctx context.Context, key, field, expected string, fields map[string]string,
) (string, bool, error) {
	if m.hsetIfEqualFn != nil {
		return m.hsetIfEqualFn(ctx, key, field, expected, fields)
	}
	return "", false, db.ErrKeyNotFound
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if m.zaddFn != nil {
		return m.zaddFn(ctx, key, score, member)
	}
	return nil
}

func (m *mockStore) ZRevRange(ctx context.Context, key string) ([]string, error) {
	if m.zrevRangeFn != nil {
		return m.zrevRangeFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) ZRem(ctx context.Context, key string, members ...string) error {
	if m.zremFn != nil {
		return m.zremFn(ctx, key, members...)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}

func testDocument(t *testing.T) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New("doc-1", "report.pdf", "/data/documents/doc-1/original.pdf", 1700)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return doc
}

func testHash() map[string]string {
	return map[string]string{
		"id":           "doc-1",
		"filename":     "report.pdf",
		"storage_path": "/data/documents/doc-1/original.pdf",
		"status":       "ready",
		"index_ref":    "/indexes/doc-1",
		"summary":      "",
		"page_count":   "4",
		"created_at":   "1700",
		"updated_at":   "1800",
	}
}

// memStore is a map-backed store with the server-side semantics of the Redis commands.
type memStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	scores map[string]map[string]float64
}

func newMemStore() *memStore {
	return &memStore{
		hashes: make(map[string]map[string]string),
		scores: make(map[string]map[string]float64),
	}
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = m.HGetAll(ctx, k)
	}
	return out, nil
}

func (m *memStore) HSetIfEqual(
	_ context.Context, key, field, expected string, fields map[string]string,
) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		return "", false, db.ErrKeyNotFound
	}
	cur := h[field]
	if cur != expected {
		return cur, false, nil
	}
	for k, v := range fields {
		h[k] = v
	}
	return cur, true, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hashes, key)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *memStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.scores[key]
	if !ok {
		z = make(map[string]float64)
		m.scores[key] = z
	}
	z[member] = score
	return nil
}

func (m *memStore) ZRevRange(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z := m.scores[key]
	out := make([]string, 0, len(z))
	for member := range z {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return z[out[i]] > z[out[j]] })
	return out, nil
}

func (m *memStore) ZRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.scores[key], member)
	}
	return nil
}

func (m *memStore) hashCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hashes)
}
