package document

import (
	"errors"
	"fmt"
	"strconv"

	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
)

// Hash field names for a document record.
const (
	fieldID          = "id"
	fieldFilename    = "filename"
	fieldStoragePath = "storage_path"
	fieldStatus      = "status"
	fieldIndexRef    = "index_ref"
	fieldSummary     = "summary"
	fieldPageCount   = "page_count"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc *domdoc.Document) map[string]string {
	return map[string]string{
		fieldID:          doc.ID(),
		fieldFilename:    doc.Filename(),
		fieldStoragePath: doc.StoragePath(),
		fieldStatus:      string(doc.Status()),
		fieldIndexRef:    doc.IndexRef(),
		fieldSummary:     doc.Summary(),
		fieldPageCount:   strconv.Itoa(doc.PageCount()),
		fieldCreatedAt:   strconv.FormatInt(doc.CreatedAt(), 10),
		fieldUpdatedAt:   strconv.FormatInt(doc.UpdatedAt(), 10),
	}
}

// errCorruptRecord marks a hash that cannot be a stored document.
var errCorruptRecord = errors.New("corrupt document record")

// parseHashFields converts a flat hash map back into a domain Document.
// A hash without its id field or with an unknown status is rejected.
// Unparseable numbers fall back to zero.
func parseHashFields(id string, m map[string]string) (domdoc.Document, error) {
	if m[fieldID] != id {
		return domdoc.Document{}, fmt.Errorf("id field %q: %w", m[fieldID], errCorruptRecord)
	}
	status := domdoc.Status(m[fieldStatus])
	if !status.Valid() {
		return domdoc.Document{}, fmt.Errorf("status %q: %w", status, errCorruptRecord)
	}

	pageCount, _ := strconv.Atoi(m[fieldPageCount])
	createdAt, _ := strconv.ParseInt(m[fieldCreatedAt], 10, 64)
	updatedAt, _ := strconv.ParseInt(m[fieldUpdatedAt], 10, 64)

	return domdoc.Reconstruct(
		id,
		m[fieldFilename],
		m[fieldStoragePath],
		status,
		m[fieldIndexRef],
		m[fieldSummary],
		pageCount,
		createdAt,
		updatedAt,
	), nil
}
