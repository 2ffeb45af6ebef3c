package degraded

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/absola/internal/domain"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
)

func TestDocuments_AllUnavailable(t *testing.T) {
	ctx := context.Background()
	var r Documents

	checks := map[string]error{
		"create": r.Create(ctx, domdoc.Document{}),
		"update": r.UpdateStatus(ctx, domdoc.Document{}),
		"delete": r.Delete(ctx, "d1"),
	}
	_, checks["get"] = r.Get(ctx, "d1")
	_, checks["list"] = r.List(ctx)
	_, checks["summary"] = r.SaveSummary(ctx, "d1", "s", 1)

	for name, err := range checks {
		if !errors.Is(err, domain.ErrUnavailable) {
			t.Errorf("%s: expected ErrUnavailable, got %v", name, err)
		}
	}
}

func TestConversations_AllUnavailable(t *testing.T) {
	ctx := context.Background()
	var r Conversations

	if err := r.Append(ctx, "d1"); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("append: %v", err)
	}
	if _, err := r.List(ctx, "d1"); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("list: %v", err)
	}
	if err := r.Delete(ctx, "d1"); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("delete: %v", err)
	}
	if err := (Pinger{}).Ping(ctx); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("ping: %v", err)
	}
}
