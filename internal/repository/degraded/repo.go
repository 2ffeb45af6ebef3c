package degraded

import (
	"context"

	"github.com/kailas-cloud/absola/internal/domain"
	domconv "github.com/kailas-cloud/absola/internal/domain/conversation"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
)

// Documents stands in for the document repository while the database is unreachable.
// Every operation fails with domain.ErrUnavailable.
type Documents struct{}

// Create fails with domain.ErrUnavailable.
func (Documents) Create(context.Context, domdoc.Document) error { return domain.ErrUnavailable }

// Get fails with domain.ErrUnavailable.
func (Documents) Get(context.Context, string) (domdoc.Document, error) {
	return domdoc.Document{}, domain.ErrUnavailable
}

// List fails with domain.ErrUnavailable.
func (Documents) List(context.Context) ([]domdoc.Document, error) { return nil, domain.ErrUnavailable }

// UpdateStatus fails with domain.ErrUnavailable.
func (Documents) UpdateStatus(context.Context, domdoc.Document) error { return domain.ErrUnavailable }

// SaveSummary fails with domain.ErrUnavailable.
func (Documents) SaveSummary(context.Context, string, string, int64) (string, error) {
	return "", domain.ErrUnavailable
}

// Delete fails with domain.ErrUnavailable.
func (Documents) Delete(context.Context, string) error { return domain.ErrUnavailable }

// Conversations stands in for the conversation repository while the database is unreachable.
type Conversations struct{}

// Append fails with domain.ErrUnavailable.
func (Conversations) Append(context.Context, string, ...domconv.Message) error {
	return domain.ErrUnavailable
}

// List fails with domain.ErrUnavailable.
func (Conversations) List(context.Context, string) ([]domconv.Message, error) {
	return nil, domain.ErrUnavailable
}

// Delete fails with domain.ErrUnavailable.
func (Conversations) Delete(context.Context, string) error { return domain.ErrUnavailable }

// Pinger reports the database as down. Used by health checks in degraded mode.
type Pinger struct{}

// Ping fails with domain.ErrUnavailable.
func (Pinger) Ping(context.Context) error { return domain.ErrUnavailable }
