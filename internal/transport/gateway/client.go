package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/metrics"
)

const (
	backendName = "gateway"

	defaultTimeout       = 120 * time.Second
	defaultHealthTimeout = 5 * time.Second

	// maxErrorBody bounds how much of an error response is kept for logs.
	maxErrorBody = 4 << 10
)

// Config holds the AI service client settings.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	HealthTimeout time.Duration
	Logger        *zap.Logger
}

// Client talks to the AI service over JSON/HTTP.
// Every failure is returned wrapped with domain.ErrGatewayError.
type Client struct {
	baseURL       string
	http          *http.Client
	healthTimeout time.Duration
	logger        *zap.Logger
}

// NewClient creates an AI service client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	healthTimeout := cfg.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		http:          &http.Client{Timeout: timeout},
		healthTimeout: healthTimeout,
		logger:        logger,
	}
}

type ingestRequest struct {
	FilePath string `json:"filepath"`
}

// The deployed service still answers with faiss* field names.
type ingestResponse struct {
	IndexRef       string `json:"indexRef"`
	FaissIndexPath string `json:"faissIndexPath"`
	ChunkCount     *int   `json:"chunkCount"`
	Chunks         *int   `json:"chunks"`
}

// Ingest asks the service to index a stored file.
func (c *Client) Ingest(ctx context.Context, filePath string) (domain.IngestResult, error) {
	var resp ingestResponse
	if err := c.post(ctx, "ingest", "/ingest", ingestRequest{FilePath: filePath}, &resp); err != nil {
		return domain.IngestResult{}, err
	}

	ref := resp.IndexRef
	if ref == "" {
		ref = resp.FaissIndexPath
	}
	if ref == "" {
		c.fail("ingest", "empty_response", errors.New("response has no index reference"))
		return domain.IngestResult{}, fmt.Errorf("ingest: empty index reference: %w", domain.ErrGatewayError)
	}

	var chunks int
	switch {
	case resp.ChunkCount != nil:
		chunks = *resp.ChunkCount
	case resp.Chunks != nil:
		chunks = *resp.Chunks
	}

	return domain.IngestResult{IndexRef: ref, Chunks: chunks}, nil
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize implements domain.Summarizer.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	var resp summarizeResponse
	if err := c.post(ctx, "summarize", "/summarize", summarizeRequest{Text: text}, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

type queryRequest struct {
	Query          string `json:"query"`
	IndexRef       string `json:"indexRef"`
	FaissIndexPath string `json:"faissIndexPath"`
	UserPrompt     string `json:"userPrompt,omitempty"`
}

type queryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Query asks a question against an index. instructions may be empty.
func (c *Client) Query(ctx context.Context, indexRef, question, instructions string) (domain.Answer, error) {
	req := queryRequest{
		Query:          question,
		IndexRef:       indexRef,
		FaissIndexPath: indexRef,
		UserPrompt:     instructions,
	}

	var resp queryResponse
	if err := c.post(ctx, "query", "/query", req, &resp); err != nil {
		return domain.Answer{}, err
	}

	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	return domain.Answer{Answer: resp.Answer, Sources: sources}, nil
}

type scrapeRequest struct {
	Term string `json:"term"`
}

type scrapeResponse struct {
	Explanation string `json:"explanation"`
	Provider    string `json:"provider"`
}

// LookupTerm implements domain.TermLookup.
func (c *Client) LookupTerm(ctx context.Context, term string) (domain.TermExplanation, error) {
	var resp scrapeResponse
	if err := c.post(ctx, "scrape", "/scrape", scrapeRequest{Term: term}, &resp); err != nil {
		return domain.TermExplanation{}, err
	}
	return domain.TermExplanation{Term: term, Explanation: resp.Explanation, Provider: resp.Provider}, nil
}

// IsReachable implements domain.ReachabilityChecker: GET /health answers 2xx within the health timeout.
func (c *Client) IsReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// post sends a JSON request and decodes a JSON response, recording metrics per operation.
func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		errType := "network"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			errType = "timeout"
		}
		c.fail(op, errType, err)
		return fmt.Errorf("%s request failed: %w", op, domain.ErrGatewayError)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := extractDetail(raw)
		if detail == "" {
			detail = string(raw)
		}
		c.fail(op, "status_"+strconv.Itoa(resp.StatusCode), fmt.Errorf("status %d: %s", resp.StatusCode, detail))
		return fmt.Errorf("%s returned %d: %w", op, resp.StatusCode, domain.ErrGatewayError)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.fail(op, "decode", err)
		return fmt.Errorf("%s: undecodable response: %w", op, domain.ErrGatewayError)
	}

	metrics.AIRequestsTotal.WithLabelValues(backendName, op, "success").Inc()
	metrics.AIRequestDuration.WithLabelValues(backendName, op).Observe(duration.Seconds())
	return nil
}

// fail records and logs the real cause; callers only see the generic sentinel.
func (c *Client) fail(op, errType string, cause error) {
	metrics.AIRequestsTotal.WithLabelValues(backendName, op, "error").Inc()
	metrics.AIErrorsTotal.WithLabelValues(backendName, op, errType).Inc()
	c.logger.Warn("AI service call failed",
		zap.String("operation", op),
		zap.String("error_type", errType),
		zap.Error(cause),
	)
}

// extractDetail extracts the "detail" field from a JSON error body (FastAPI error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
