package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/metrics"
)

const (
	backendName = "openai"
	operation   = "summarize"

	systemPrompt = "You summarize documents. Write a concise, faithful summary of the user's text " +
		"covering its purpose, key points and conclusions. Do not invent facts."
)

// Summarizer produces summaries through an OpenAI-compatible chat completion API.
type Summarizer struct {
	client        *openai.Client
	model         string
	maxInputChars int
	provider      string
	logger        *zap.Logger
}

// Config holds the summarization provider settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxInputChars int
	Provider      string
	Logger        *zap.Logger
}

// NewSummarizer creates an OpenAI-compatible summarizer.
func NewSummarizer(cfg *Config) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Summarizer{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		maxInputChars: cfg.MaxInputChars,
		provider:      cfg.Provider,
		logger:        cfg.Logger,
	}
}

// Summarize implements domain.Summarizer. Input beyond MaxInputChars is cut off.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: truncate(text, s.maxInputChars)},
		},
	}

	start := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		s.fail("api_error", err)
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		s.fail("empty_response", errors.New("no choices"))
		return "", fmt.Errorf("empty summary response: %w", domain.ErrGatewayError)
	}

	metrics.AIRequestsTotal.WithLabelValues(backendName, operation, "success").Inc()
	metrics.AIRequestDuration.WithLabelValues(backendName, operation).Observe(duration.Seconds())

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *Summarizer) fail(errType string, cause error) {
	metrics.AIRequestsTotal.WithLabelValues(backendName, operation, "error").Inc()
	metrics.AIErrorsTotal.WithLabelValues(backendName, operation, errType).Inc()
	if s.logger != nil {
		s.logger.Warn("Summarization failed",
			zap.String("provider", s.provider),
			zap.String("model", s.model),
			zap.String("error_type", errType),
			zap.Error(cause),
		)
	}
}

// truncate cuts text to at most limit runes. limit <= 0 disables truncation.
func truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrGatewayError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrGatewayError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("summary API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("summary API error %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("summary API error %d: %w", apiErr.HTTPStatusCode, wrap)
	}

	return fmt.Errorf("summary request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
