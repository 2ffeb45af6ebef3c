package document

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/absola/internal/domain"
)

// Status is the ingestion state of a document.
type Status string

const (
	// StatusProcessing is the initial state while the AI service ingests the file.
	StatusProcessing Status = "processing"
	// StatusReady means the document is indexed and can be queried.
	StatusReady Status = "ready"
	// StatusError means ingestion failed. Terminal.
	StatusError Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusReady, StatusError:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// MaxFilenameLength bounds the display name kept on the record.
const MaxFilenameLength = 255

// Document is the document aggregate.
type Document struct {
	id          string
	filename    string
	storagePath string
	status      Status
	indexRef    string
	summary     string
	pageCount   int
	createdAt   int64
	updatedAt   int64
}

// New validates and creates a Document in the processing state.
// createdAt is unix milliseconds.
func New(id, filename, storagePath string, createdAt int64) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrInvalidInput)
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return Document{}, fmt.Errorf("filename is required: %w", domain.ErrInvalidInput)
	}
	if len(filename) > MaxFilenameLength {
		return Document{}, fmt.Errorf("filename too long (max %d): %w", MaxFilenameLength, domain.ErrInvalidInput)
	}
	if storagePath == "" {
		return Document{}, fmt.Errorf("storage path is required: %w", domain.ErrInvalidInput)
	}

	return Document{
		id:          id,
		filename:    filename,
		storagePath: storagePath,
		status:      StatusProcessing,
		createdAt:   createdAt,
		updatedAt:   createdAt,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, filename, storagePath string, status Status,
	indexRef, summary string, pageCount int, createdAt, updatedAt int64,
) Document {
	return Document{
		id:          id,
		filename:    filename,
		storagePath: storagePath,
		status:      status,
		indexRef:    indexRef,
		summary:     summary,
		pageCount:   pageCount,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Filename returns the original user-supplied name.
func (d *Document) Filename() string { return d.filename }

// StoragePath returns the absolute path of the stored original.
func (d *Document) StoragePath() string { return d.storagePath }

// Status returns the ingestion status.
func (d *Document) Status() Status { return d.status }

// IndexRef returns the AI service index reference (empty unless ready).
func (d *Document) IndexRef() string { return d.indexRef }

// Summary returns the cached summary (empty until generated).
func (d *Document) Summary() string { return d.summary }

// HasSummary reports whether a summary is cached.
func (d *Document) HasSummary() bool { return d.summary != "" }

// PageCount returns the page count for PDFs, 0 when unknown.
func (d *Document) PageCount() int { return d.pageCount }

// CreatedAt returns the creation time in unix milliseconds.
func (d *Document) CreatedAt() int64 { return d.createdAt }

// UpdatedAt returns the last modification time in unix milliseconds.
func (d *Document) UpdatedAt() int64 { return d.updatedAt }

// IsReady reports whether the document finished ingestion successfully.
func (d *Document) IsReady() bool { return d.status == StatusReady }

// Queryable reports whether the document can be queried against its index.
func (d *Document) Queryable() bool { return d.status == StatusReady && d.indexRef != "" }

// SetPageCount records the page count. Only meaningful before the record is persisted.
func (d *Document) SetPageCount(n int) {
	if n > 0 {
		d.pageCount = n
	}
}

// MarkReady moves a processing document to ready with the given index reference.
func (d *Document) MarkReady(indexRef string, now int64) error {
	if indexRef == "" {
		return fmt.Errorf("index reference is required: %w", domain.ErrInvalidInput)
	}
	if err := d.checkTransition(StatusReady); err != nil {
		return err
	}
	d.status = StatusReady
	d.indexRef = indexRef
	d.updatedAt = now
	return nil
}

// MarkFailed moves a processing document to error.
func (d *Document) MarkFailed(now int64) error {
	if err := d.checkTransition(StatusError); err != nil {
		return err
	}
	d.status = StatusError
	d.indexRef = ""
	d.updatedAt = now
	return nil
}

// CacheSummary stores the summary once. Returns false if a summary was already cached,
// in which case the existing value is kept, or if summary is blank.
func (d *Document) CacheSummary(summary string, now int64) bool {
	if d.summary != "" || strings.TrimSpace(summary) == "" {
		return false
	}
	d.summary = summary
	d.updatedAt = now
	return true
}

// CanTransition reports whether from → to is allowed by the lifecycle.
func CanTransition(from, to Status) bool {
	return from == StatusProcessing && to.Terminal()
}

func (d *Document) checkTransition(to Status) error {
	if !CanTransition(d.status, to) {
		return fmt.Errorf("%s -> %s: %w", d.status, to, domain.ErrInvalidTransition)
	}
	return nil
}
