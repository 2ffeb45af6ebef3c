package document

import (
	"context"
	"time"

	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/domain/conversation"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
	"github.com/kailas-cloud/absola/internal/fileinfo"
)

// Repository defines the storage contract for document records.
type Repository interface {
	Create(ctx context.Context, doc domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	// List returns all records, newest first.
	List(ctx context.Context) ([]domdoc.Document, error)
	// UpdateStatus persists a terminal transition. Records that already left
	// processing are rejected with domain.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, doc domdoc.Document) error
	// SaveSummary stores the summary unless one is present and returns the stored value.
	SaveSummary(ctx context.Context, id, summary string, updatedAt int64) (string, error)
	Delete(ctx context.Context, id string) error
}

// ConversationRepository stores the question/answer history of a document.
type ConversationRepository interface {
	Append(ctx context.Context, documentID string, msgs ...conversation.Message) error
	List(ctx context.Context, documentID string) ([]conversation.Message, error)
	Delete(ctx context.Context, documentID string) error
}

// Storage is the filesystem contract the orchestrator needs.
type Storage interface {
	EnsureDir(id string) error
	Place(id, srcPath, originalName string) (string, error)
	ReadFile(path string) ([]byte, error)
	RemoveAll(id string) error
	RemoveIndex(indexRef string) (bool, error)
}

// Gateway is the AI service contract used for ingestion and questions.
type Gateway interface {
	Ingest(ctx context.Context, filePath string) (domain.IngestResult, error)
	Query(ctx context.Context, indexRef, question, instructions string) (domain.Answer, error)
}

// Inspector extracts file metadata from a stored original.
type Inspector interface {
	Inspect(path string) (fileinfo.Info, error)
}

// IngestionObserver records ingestion outcomes.
type IngestionObserver interface {
	ObserveIngestion(status string, d time.Duration)
}
