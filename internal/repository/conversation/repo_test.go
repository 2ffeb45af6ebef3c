package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	domconv "github.com/kailas-cloud/absola/internal/domain/conversation"
)

type mockStore struct {
	lists   map[string][]string
	pushErr error
	deleted []string
}

func newMockStore() *mockStore {
	return &mockStore{lists: make(map[string][]string)}
}

func (m *mockStore) RPush(_ context.Context, key string, values ...string) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *mockStore) LRange(_ context.Context, key string) ([]string, error) {
	return m.lists[key], nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.lists, key)
	return nil
}

func mustMessage(t *testing.T, role domconv.Role, content string, sources []string) domconv.Message {
	t.Helper()
	m, err := domconv.NewMessage(role, content, sources, 1700)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	return m
}

func TestAppendList_RoundTrip(t *testing.T) {
	ms := newMockStore()
	repo := New(ms)
	ctx := context.Background()

	err := repo.Append(ctx, "doc-1",
		mustMessage(t, domconv.RoleUser, "what is it?", nil),
		mustMessage(t, domconv.RoleAI, "a report", []string{"page 1"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := ms.lists["absola:conv:doc-1"]
	if len(raw) != 2 || !strings.Contains(raw[1], `"role":"ai"`) {
		t.Fatalf("unexpected stored values: %v", raw)
	}

	msgs, err := repo.List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role() != domconv.RoleUser || msgs[1].Content() != "a report" {
		t.Errorf("unexpected messages: %v / %v", msgs[0].Content(), msgs[1].Content())
	}
	if len(msgs[1].Sources()) != 1 || msgs[1].Sources()[0] != "page 1" {
		t.Errorf("unexpected sources: %v", msgs[1].Sources())
	}
}

func TestList_SkipsCorruptEntries(t *testing.T) {
	ms := newMockStore()
	ms.lists["absola:conv:doc-1"] = []string{"{not json", `{"role":"user","content":"hi","createdAt":1}`}

	msgs, err := New(ms).List(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content() != "hi" {
		t.Errorf("unexpected messages: %d", len(msgs))
	}
}

func TestAppend_StoreError(t *testing.T) {
	ms := newMockStore()
	ms.pushErr = errors.New("READONLY")

	err := New(ms).Append(context.Background(), "doc-1", mustMessage(t, domconv.RoleUser, "q", nil))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDelete(t *testing.T) {
	ms := newMockStore()
	if err := New(ms).Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.deleted) != 1 || ms.deleted[0] != "absola:conv:doc-1" {
		t.Errorf("unexpected deletes: %v", ms.deleted)
	}
}
