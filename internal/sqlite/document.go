package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kailas-cloud/absola/internal/domain"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
)

const documentColumns = `id, filename, storage_path, status, index_ref, summary, page_count, created_at, updated_at`

// DocumentRepository implements usecase/document.Repository for SQLite
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new record
func (r *DocumentRepository) Create(ctx context.Context, doc domdoc.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID(),
		doc.Filename(),
		doc.StoragePath(),
		string(doc.Status()),
		doc.IndexRef(),
		doc.Summary(),
		doc.PageCount(),
		doc.CreatedAt(),
		doc.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// Get retrieves a record by ID
func (r *DocumentRepository) Get(ctx context.Context, id string) (domdoc.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// List returns all records, newest first
func (r *DocumentRepository) List(ctx context.Context) ([]domdoc.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC, rowid DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []domdoc.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// UpdateStatus writes a terminal status. Only rows still in processing are updated.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, doc domdoc.Document) error {
	if !doc.Status().Terminal() {
		return fmt.Errorf("status %q: %w", doc.Status(), domain.ErrInvalidTransition)
	}

	query := `
		UPDATE documents
		SET status = ?, index_ref = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'
	`

	result, err := r.db.ExecContext(ctx, query,
		string(doc.Status()),
		doc.IndexRef(),
		doc.UpdatedAt(),
		doc.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	if _, err := r.Get(ctx, doc.ID()); err != nil {
		return err
	}
	return fmt.Errorf("document %s already finished: %w", doc.ID(), domain.ErrInvalidTransition)
}

// SaveSummary stores the summary once and returns whatever is stored afterwards
func (r *DocumentRepository) SaveSummary(ctx context.Context, id, summary string, updatedAt int64) (string, error) {
	if summary == "" {
		return "", fmt.Errorf("empty summary: %w", domain.ErrInvalidInput)
	}

	query := `
		UPDATE documents
		SET summary = ?, updated_at = ?
		WHERE id = ? AND summary = ''
	`

	if _, err := r.db.ExecContext(ctx, query, summary, updatedAt, id); err != nil {
		return "", fmt.Errorf("failed to save summary: %w", err)
	}

	var stored string
	err := r.db.QueryRowContext(ctx, `SELECT summary FROM documents WHERE id = ?`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrDocumentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read summary: %w", err)
	}

	return stored, nil
}

// Delete removes a record
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domdoc.Document, error) {
	var (
		id, filename, storagePath, status, indexRef, summary string
		pageCount                                            int
		createdAt, updatedAt                                 int64
	)

	err := row.Scan(
		&id,
		&filename,
		&storagePath,
		&status,
		&indexRef,
		&summary,
		&pageCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domdoc.Document{}, err
	}

	return domdoc.Reconstruct(
		id, filename, storagePath, domdoc.Status(status),
		indexRef, summary, pageCount, createdAt, updatedAt,
	), nil
}
