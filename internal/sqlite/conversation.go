package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/absola/internal/domain/conversation"
)

// ConversationRepository implements usecase/document.ConversationRepository for SQLite
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Append adds messages to the end of a document's history in one transaction
func (r *ConversationRepository) Append(ctx context.Context, documentID string, msgs ...conversation.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
		INSERT INTO conversation_messages (document_id, role, content, sources, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	for _, m := range msgs {
		sources := m.Sources()
		if sources == nil {
			sources = []string{}
		}
		raw, err := json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("failed to encode sources: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query,
			documentID,
			string(m.Role()),
			m.Content(),
			string(raw),
			m.CreatedAt(),
		); err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}

	return nil
}

// List returns a document's history in insertion order
func (r *ConversationRepository) List(ctx context.Context, documentID string) ([]conversation.Message, error) {
	query := `
		SELECT role, content, sources, created_at
		FROM conversation_messages
		WHERE document_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []conversation.Message
	for rows.Next() {
		var (
			role, content, rawSources string
			createdAt                 int64
		)
		if err := rows.Scan(&role, &content, &rawSources, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		var sources []string
		if err := json.Unmarshal([]byte(rawSources), &sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}

		msgs = append(msgs, conversation.Reconstruct(conversation.Role(role), content, sources, createdAt))
	}

	return msgs, rows.Err()
}

// Delete removes a document's history. Absent history is not an error.
func (r *ConversationRepository) Delete(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversation_messages WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}
