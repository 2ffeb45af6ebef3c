package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/absola/internal/domain"
	domconv "github.com/kailas-cloud/absola/internal/domain/conversation"
)

// store is the consumer interface for conversation history (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string) ([]string, error)
	Del(ctx context.Context, key string) error
}

// Repo implements usecase/document.ConversationRepository on a Redis list per document.
type Repo struct {
	store store
}

// New creates a conversation repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

type messageJSON struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Sources   []string `json:"sources"`
	CreatedAt int64    `json:"createdAt"`
}

// Append pushes messages to the tail of the document's list in one RPUSH.
func (r *Repo) Append(ctx context.Context, documentID string, msgs ...domconv.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]string, len(msgs))
	for i, m := range msgs {
		data, err := json.Marshal(messageJSON{
			Role:      string(m.Role()),
			Content:   m.Content(),
			Sources:   m.Sources(),
			CreatedAt: m.CreatedAt(),
		})
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values[i] = string(data)
	}

	key := conversationKey(documentID)
	if err := r.store.RPush(ctx, key, values...); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

// List returns the history in insertion order. Undecodable entries are skipped.
func (r *Repo) List(ctx context.Context, documentID string) ([]domconv.Message, error) {
	key := conversationKey(documentID)
	values, err := r.store.LRange(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	msgs := make([]domconv.Message, 0, len(values))
	for _, v := range values {
		var m messageJSON
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue
		}
		msgs = append(msgs, domconv.Reconstruct(domconv.Role(m.Role), m.Content, m.Sources, m.CreatedAt))
	}
	return msgs, nil
}

// Delete drops the document's history.
func (r *Repo) Delete(ctx context.Context, documentID string) error {
	key := conversationKey(documentID)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func conversationKey(documentID string) string {
	return fmt.Sprintf("%sconv:%s", domain.KeyPrefix, documentID)
}
