package conversation

import (
	"fmt"

	"github.com/kailas-cloud/absola/internal/domain"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a question asked by the user.
	RoleUser Role = "user"
	// RoleAI is an answer produced by the AI service.
	RoleAI Role = "ai"
)

// Message is one entry in a document's conversation history.
type Message struct {
	role      Role
	content   string
	sources   []string
	createdAt int64
}

// NewMessage validates and creates a Message. createdAt is unix milliseconds.
func NewMessage(role Role, content string, sources []string, createdAt int64) (Message, error) {
	if role != RoleUser && role != RoleAI {
		return Message{}, fmt.Errorf("unknown role %q: %w", role, domain.ErrInvalidInput)
	}
	if content == "" {
		return Message{}, fmt.Errorf("message content is required: %w", domain.ErrInvalidInput)
	}
	return Message{
		role:      role,
		content:   content,
		sources:   append([]string(nil), sources...),
		createdAt: createdAt,
	}, nil
}

// Reconstruct creates a Message without validation (storage hydration).
func Reconstruct(role Role, content string, sources []string, createdAt int64) Message {
	return Message{role: role, content: content, sources: sources, createdAt: createdAt}
}

// Role returns the author role.
func (m Message) Role() Role { return m.role }

// Content returns the message text.
func (m Message) Content() string { return m.content }

// Sources returns the source chunks cited by an AI answer.
func (m Message) Sources() []string { return m.sources }

// CreatedAt returns the creation time in unix milliseconds.
func (m Message) CreatedAt() int64 { return m.createdAt }
