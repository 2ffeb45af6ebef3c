package document

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/domain/conversation"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
	"github.com/kailas-cloud/absola/internal/fileinfo"
)

// --- Mocks ---

// memRepo is an in-memory Repository with the same write rules as the real stores.
type memRepo struct {
	mu        sync.Mutex
	docs      map[string]domdoc.Document
	createErr error
	getErr    error
	deleteErr error
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[string]domdoc.Document)}
}

func (m *memRepo) Create(_ context.Context, doc domdoc.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.docs[doc.ID()] = doc
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (domdoc.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domdoc.Document{}, m.getErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *memRepo) List(_ context.Context) ([]domdoc.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domdoc.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt() > out[j].CreatedAt() })
	return out, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, doc domdoc.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[doc.ID()]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	if !domdoc.CanTransition(cur.Status(), doc.Status()) {
		return domain.ErrInvalidTransition
	}
	m.docs[doc.ID()] = domdoc.Reconstruct(cur.ID(), cur.Filename(), cur.StoragePath(), doc.Status(),
		doc.IndexRef(), cur.Summary(), cur.PageCount(), cur.CreatedAt(), doc.UpdatedAt())
	return nil
}

func (m *memRepo) SaveSummary(_ context.Context, id, summary string, updatedAt int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[id]
	if !ok {
		return "", domain.ErrDocumentNotFound
	}
	if cur.CacheSummary(summary, updatedAt) {
		m.docs[id] = cur
	}
	return cur.Summary(), nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

// put seeds a document in the given status.
func (m *memRepo) put(id string, status domdoc.Status, indexRef, summary string, createdAt int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = domdoc.Reconstruct(id, id+".pdf", "/docs/"+id+"/original.pdf",
		status, indexRef, summary, 0, createdAt, createdAt)
}

type mockConvRepo struct {
	mu        sync.Mutex
	msgs      map[string][]conversation.Message
	appendErr error
	deleted   []string
}

func newMockConvRepo() *mockConvRepo {
	return &mockConvRepo{msgs: make(map[string][]conversation.Message)}
}

func (m *mockConvRepo) Append(_ context.Context, id string, msgs ...conversation.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.msgs[id] = append(m.msgs[id], msgs...)
	return nil
}

func (m *mockConvRepo) List(_ context.Context, id string) ([]conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msgs[id], nil
}

func (m *mockConvRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	delete(m.msgs, id)
	return nil
}

type mockStorage struct {
	mu             sync.Mutex
	placeErr       error
	removeErr      error
	removeIndexErr error
	files          map[string][]byte
	removedDirs    []string
	removedIndexes []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) EnsureDir(_ string) error { return nil }

func (m *mockStorage) Place(id, _, originalName string) (string, error) {
	if m.placeErr != nil {
		return "", m.placeErr
	}
	path := "/docs/" + id + "/original.pdf"
	m.mu.Lock()
	m.files[path] = []byte("content of " + originalName)
	m.mu.Unlock()
	return path, nil
}

func (m *mockStorage) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return []byte("stored text"), nil
	}
	return data, nil
}

func (m *mockStorage) RemoveAll(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removedDirs = append(m.removedDirs, id)
	return m.removeErr
}

func (m *mockStorage) RemoveIndex(ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removedIndexes = append(m.removedIndexes, ref)
	return m.removeIndexErr == nil, m.removeIndexErr
}

func (m *mockStorage) dirsRemoved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removedDirs...)
}

func (m *mockStorage) indexesRemoved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removedIndexes...)
}

type mockGateway struct {
	release     chan struct{} // when set, Ingest blocks until closed
	ingestRes   domain.IngestResult
	ingestErr   error
	answer      domain.Answer
	queryErr    error
	ingestCalls atomic.Int32
	queryCalls  atomic.Int32
}

func (m *mockGateway) Ingest(ctx context.Context, _ string) (domain.IngestResult, error) {
	m.ingestCalls.Add(1)
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return domain.IngestResult{}, ctx.Err()
		}
	}
	return m.ingestRes, m.ingestErr
}

func (m *mockGateway) Query(_ context.Context, _, _, _ string) (domain.Answer, error) {
	m.queryCalls.Add(1)
	return m.answer, m.queryErr
}

type mockSummarizer struct {
	release chan struct{}
	result  string
	err     error
	calls   atomic.Int32
}

func (m *mockSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	m.calls.Add(1)
	if m.release != nil {
		<-m.release
	}
	return m.result, m.err
}

type mockTerms struct {
	result domain.TermExplanation
	err    error
	calls  atomic.Int32
}

func (m *mockTerms) LookupTerm(_ context.Context, term string) (domain.TermExplanation, error) {
	m.calls.Add(1)
	res := m.result
	res.Term = term
	return res, m.err
}

type mockInspector struct {
	info fileinfo.Info
	err  error
}

func (m *mockInspector) Inspect(_ string) (fileinfo.Info, error) { return m.info, m.err }

type mockObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (m *mockObserver) ObserveIngestion(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

// --- Fixtures ---

type fixture struct {
	svc        *Service
	repo       *memRepo
	convs      *mockConvRepo
	storage    *mockStorage
	gateway    *mockGateway
	summarizer *mockSummarizer
	terms      *mockTerms
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newMemRepo(),
		convs:      newMockConvRepo(),
		storage:    newMockStorage(),
		gateway:    &mockGateway{ingestRes: domain.IngestResult{IndexRef: "/indexes/doc", Chunks: 5}},
		summarizer: &mockSummarizer{result: "a summary"},
		terms:      &mockTerms{result: domain.TermExplanation{Explanation: "meaning", Provider: "wiki"}},
	}

	var seq atomic.Int64
	clock := time.UnixMilli(1_700_000_000_000)
	f.svc = New(f.repo, f.storage, f.gateway, f.summarizer, f.terms, nil).
		WithConversations(f.convs).
		WithClock(func() time.Time { return clock.Add(time.Duration(seq.Add(1)) * time.Millisecond) })

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if f.gateway.release != nil {
			select {
			case <-f.gateway.release:
			default:
				close(f.gateway.release)
			}
		}
		if err := f.svc.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return f
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var errBoom = errors.New("boom")
