package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/logger"
	"github.com/kailas-cloud/absola/internal/metrics"
)

// Error codes returned in the response envelope.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeNotReady         = "NOT_READY"
	CodeNotIndexed       = "NOT_INDEXED"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInvalidQuery     = "INVALID_QUERY"
	CodeInvalidTerm      = "INVALID_TERM"
	CodeNoFile           = "NO_FILE"
	CodeInvalidFileType  = "INVALID_FILE_TYPE"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeGatewayError     = "GATEWAY_ERROR"
	CodeStorageError     = "STORAGE_ERROR"
	CodeUnavailable      = "UNAVAILABLE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// envelope wraps every API response.
type envelope struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options configure the HTTP API.
type Options struct {
	UploadsDir       string
	MaxUploadBytes   int64
	QueriesPerMinute int
	QueryBurst       int
	APIKeys          []string
}

// Server serves the document API.
type Server struct {
	documents     DocumentService
	health        HealthChecker
	opts          Options
	queryLimiter  *RateLimiter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(documents DocumentService, health HealthChecker, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	if opts.QueriesPerMinute <= 0 {
		opts.QueriesPerMinute = 30
	}
	if opts.QueryBurst <= 0 {
		opts.QueryBurst = opts.QueriesPerMinute
	}

	s := &Server{
		documents:    documents,
		health:       health,
		opts:         opts,
		queryLimiter: NewRateLimiter(time.Minute/time.Duration(opts.QueriesPerMinute), opts.QueryBurst),
		logger:       log,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeNotFound, false),
		sentinelHandler(domain.ErrNotReady, http.StatusConflict, CodeNotReady, false),
		sentinelHandler(domain.ErrNotIndexed, http.StatusConflict, CodeNotIndexed, false),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput, false),
		sentinelHandler(domain.ErrGatewayError, http.StatusBadGateway, CodeGatewayError, true),
		sentinelHandler(domain.ErrStorage, http.StatusInternalServerError, CodeStorageError, false),
		sentinelHandler(domain.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable, true),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, true),
	}
	return s
}

// Router builds the HTTP handler with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(jsonRecoverer(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found", false)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", false)
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.HealthCheck)

		r.Route("/document", func(r chi.Router) {
			r.Post("/upload", s.UploadDocument)
			r.Get("/", s.ListDocuments)
			r.Get("/{id}", s.GetDocument)
			r.Delete("/{id}", s.DeleteDocument)
			r.Get("/{id}/summary", s.GetSummary)
			r.With(s.queryLimiter.Middleware).Post("/{id}/query", s.QueryDocument)
			r.Get("/{id}/context", s.ExplainTerm)
			r.Get("/{id}/conversation", s.GetConversation)
		})
	})

	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, envelope{
		OK: report.Healthy(),
		Data: healthResponse{
			Service:            report.Service,
			Status:             string(report.Status),
			Database:           string(report.Database),
			AIServiceReachable: report.AIServiceReachable,
			UptimeSec:          int64(report.Uptime / time.Second),
			Version:            report.Version,
		},
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, retryable bool) {
	writeJSON(w, status, envelope{
		Error: &apiError{Code: code, Message: message, Retryable: retryable},
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrNotReady,
		domain.ErrNotIndexed,
		domain.ErrInvalidInput,
		domain.ErrGatewayError,
		domain.ErrStorage,
		domain.ErrUnavailable,
		domain.ErrRateLimited,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string, retryable bool) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg, retryable)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error", true)
}
