package chi

import (
	"time"

	"github.com/kailas-cloud/absola/internal/domain/conversation"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
)

type healthResponse struct {
	Service            string `json:"service"`
	Status             string `json:"status"`
	Database           string `json:"database"`
	AIServiceReachable bool   `json:"aiServiceReachable"`
	UptimeSec          int64  `json:"uptimeSec"`
	Version            string `json:"version"`
}

type uploadResponse struct {
	DocumentID string `json:"documentId"`
}

type documentListItem struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	IndexRef  string    `json:"indexRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type documentListResponse struct {
	Documents []documentListItem `json:"documents"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	IndexRef  string    `json:"indexRef,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	PageCount int       `json:"pageCount,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

type queryRequest struct {
	Query      string `json:"query"`
	UserPrompt string `json:"userPrompt,omitempty"`
}

type queryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type contextResponse struct {
	Term        string `json:"term"`
	Explanation string `json:"explanation"`
	Provider    string `json:"provider"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources"`
	CreatedAt time.Time `json:"createdAt"`
}

type conversationResponse struct {
	Messages []messageResponse `json:"messages"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func documentToResponse(d *domdoc.Document) documentResponse {
	return documentResponse{
		ID:        d.ID(),
		Filename:  d.Filename(),
		Status:    string(d.Status()),
		IndexRef:  d.IndexRef(),
		Summary:   d.Summary(),
		PageCount: d.PageCount(),
		CreatedAt: time.UnixMilli(d.CreatedAt()).UTC(),
		UpdatedAt: time.UnixMilli(d.UpdatedAt()).UTC(),
	}
}

func documentToListItem(d *domdoc.Document) documentListItem {
	return documentListItem{
		ID:        d.ID(),
		Filename:  d.Filename(),
		Status:    string(d.Status()),
		IndexRef:  d.IndexRef(),
		CreatedAt: time.UnixMilli(d.CreatedAt()).UTC(),
	}
}

func messageToResponse(m conversation.Message) messageResponse {
	sources := m.Sources()
	if sources == nil {
		sources = []string{}
	}
	return messageResponse{
		Role:      string(m.Role()),
		Content:   m.Content(),
		Sources:   sources,
		CreatedAt: time.UnixMilli(m.CreatedAt()).UTC(),
	}
}
