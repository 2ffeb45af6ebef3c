package chi

import (
	"context"

	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/domain/conversation"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
	healthuc "github.com/kailas-cloud/absola/internal/usecase/health"
)

// DocumentService is the document lifecycle as seen by the HTTP layer.
type DocumentService interface {
	Create(ctx context.Context, originalName, tempPath string) (domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Document, error)
	Summary(ctx context.Context, id string) (string, error)
	Query(ctx context.Context, id, question, instructions string) (domain.Answer, error)
	Context(ctx context.Context, id, term string) (domain.TermExplanation, error)
	History(ctx context.Context, id string) ([]conversation.Message, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// HealthChecker produces a health report.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
