package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/domain/conversation"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
	"github.com/kailas-cloud/absola/internal/logger"
)

// Service owns the document lifecycle: upload, background ingestion,
// summary, questions, term lookups and deletion.
type Service struct {
	repo       Repository
	storage    Storage
	gateway    Gateway
	summarizer domain.Summarizer
	terms      domain.TermLookup

	convs     ConversationRepository
	inspector Inspector
	observer  IngestionObserver
	logger    *zap.Logger

	now   func() time.Time
	newID func() string

	tasks     *taskSet
	summaries singleflight.Group
}

// New creates a document service.
func New(
	repo Repository,
	storage Storage,
	gateway Gateway,
	summarizer domain.Summarizer,
	terms domain.TermLookup,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		storage:    storage,
		gateway:    gateway,
		summarizer: summarizer,
		terms:      terms,
		logger:     log,
		now:        time.Now,
		newID:      uuid.NewString,
		tasks:      newTaskSet(),
	}
}

// WithConversations enables question/answer history.
func (s *Service) WithConversations(convs ConversationRepository) *Service {
	s.convs = convs
	return s
}

// WithInspector enables file inspection (page counts) on upload.
func (s *Service) WithInspector(i Inspector) *Service {
	s.inspector = i
	return s
}

// WithObserver reports ingestion outcomes.
func (s *Service) WithObserver(o IngestionObserver) *Service {
	s.observer = o
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithIDGenerator overrides document id generation.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	if gen != nil {
		s.newID = gen
	}
	return s
}

// Create stores an uploaded file, records it as processing and schedules ingestion.
// It returns without waiting for the AI service.
func (s *Service) Create(ctx context.Context, originalName, tempPath string) (domdoc.Document, error) {
	originalName = strings.TrimSpace(originalName)
	if originalName == "" {
		return domdoc.Document{}, fmt.Errorf("original filename is required: %w", domain.ErrInvalidInput)
	}
	if tempPath == "" {
		return domdoc.Document{}, fmt.Errorf("upload path is required: %w", domain.ErrInvalidInput)
	}

	id := s.newID()
	ctx, log := logger.WithDocument(ctx, id)

	// The slot is taken before anything is persisted so a record never outlives a refused task.
	task, ok := s.tasks.reserve(id)
	if !ok {
		return domdoc.Document{}, fmt.Errorf("ingestion not accepted for %s: %w", id, domain.ErrUnavailable)
	}
	scheduled := false
	defer func() {
		if !scheduled {
			task.release()
		}
	}()

	if err := s.storage.EnsureDir(id); err != nil {
		return domdoc.Document{}, fmt.Errorf("prepare storage: %w", err)
	}

	path, err := s.storage.Place(id, tempPath, originalName)
	if err != nil {
		s.discardDir(log, id)
		return domdoc.Document{}, fmt.Errorf("store upload: %w", err)
	}

	doc, err := domdoc.New(id, originalName, path, s.nowMillis())
	if err != nil {
		s.discardDir(log, id)
		return domdoc.Document{}, fmt.Errorf("new document: %w", err)
	}

	if s.inspector != nil {
		info, err := s.inspector.Inspect(path)
		if err != nil {
			log.Debug("File inspection failed", zap.Error(err))
		}
		doc.SetPageCount(info.Pages)
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.discardDir(log, id)
		return domdoc.Document{}, fmt.Errorf("create document: %w", err)
	}

	bg := context.WithoutCancel(ctx)
	task.run(func() { s.ingest(bg, id, path) })
	scheduled = true

	return doc, nil
}

// ingest runs in the background. Failures end in status error and are never returned.
func (s *Service) ingest(ctx context.Context, id, filePath string) {
	log := logger.FromContext(ctx)
	start := s.now()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Ingestion panicked", zap.Any("panic", rec))
			s.finish(ctx, id, "", fmt.Errorf("panic: %v", rec), start)
		}
	}()

	res, err := s.gateway.Ingest(ctx, filePath)
	s.finish(ctx, id, res.IndexRef, err, start)
}

// finish applies the single terminal transition for an ingestion.
func (s *Service) finish(ctx context.Context, id, indexRef string, ingestErr error, start time.Time) {
	log := logger.FromContext(ctx)

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		log.Warn("Ingestion finished for unreadable document", zap.Error(err))
		s.dropOrphanIndex(log, indexRef, ingestErr)
		return
	}

	now := s.nowMillis()
	if ingestErr == nil {
		ingestErr = doc.MarkReady(indexRef, now)
	}
	if ingestErr != nil {
		log.Warn("Ingestion failed", zap.Error(ingestErr))
		if err := doc.MarkFailed(now); err != nil {
			log.Error("Cannot mark document failed", zap.Error(err))
			return
		}
	}

	if err := s.repo.UpdateStatus(ctx, doc); err != nil {
		log.Warn("Ingestion result not persisted", zap.String("status", string(doc.Status())), zap.Error(err))
		if errors.Is(err, domain.ErrDocumentNotFound) {
			s.dropOrphanIndex(log, indexRef, ingestErr)
		}
		return
	}

	elapsed := s.now().Sub(start)
	if s.observer != nil {
		s.observer.ObserveIngestion(string(doc.Status()), elapsed)
	}
	log.Info("Ingestion finished",
		zap.String("status", string(doc.Status())),
		zap.Duration("duration", elapsed),
	)
}

// dropOrphanIndex removes an index built for a document deleted mid-ingestion.
func (s *Service) dropOrphanIndex(log *zap.Logger, indexRef string, ingestErr error) {
	if ingestErr != nil || indexRef == "" {
		return
	}
	if _, err := s.storage.RemoveIndex(indexRef); err != nil {
		log.Warn("Failed to remove orphaned index", zap.String("index_ref", indexRef), zap.Error(err))
	}
}

// Wait blocks until the scheduled ingestion of id finishes.
// Returns immediately when nothing is scheduled for id.
func (s *Service) Wait(ctx context.Context, id string) error {
	return s.tasks.wait(ctx, id)
}

// Shutdown stops accepting ingestions and waits for in-flight ones.
func (s *Service) Shutdown(ctx context.Context) error {
	if n := s.tasks.running(); n > 0 {
		s.logger.Info("Waiting for ingestions", zap.Int("running", n))
	}
	return s.tasks.shutdown(ctx)
}

// Get returns a document record.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]domdoc.Document, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Summary returns the cached summary or produces it once.
// Concurrent callers for one document share a single summarizer call.
func (s *Service) Summary(ctx context.Context, id string) (string, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}
	if !doc.IsReady() {
		return "", domain.ErrNotReady
	}
	if doc.HasSummary() {
		return doc.Summary(), nil
	}

	// Detached so one caller going away does not fail the others sharing the flight.
	sctx := context.WithoutCancel(ctx)
	v, err, _ := s.summaries.Do(id, func() (any, error) {
		return s.summarize(sctx, id)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Service) summarize(ctx context.Context, id string) (string, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}
	if doc.HasSummary() {
		return doc.Summary(), nil
	}

	data, err := s.storage.ReadFile(doc.StoragePath())
	if err != nil {
		return "", fmt.Errorf("read original: %w", err)
	}

	summary, err := s.summarizer.Summarize(ctx, strings.ToValidUTF8(string(data), ""))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	if !doc.CacheSummary(summary, s.nowMillis()) {
		return "", fmt.Errorf("summarize: empty summary: %w", domain.ErrGatewayError)
	}

	stored, err := s.repo.SaveSummary(ctx, id, doc.Summary(), doc.UpdatedAt())
	if err != nil {
		return "", fmt.Errorf("save summary: %w", err)
	}
	return stored, nil
}

// Query asks a question against a ready document. Answers are not cached.
// With history enabled the exchange is appended; a history failure does not fail the query.
func (s *Service) Query(ctx context.Context, id, question, instructions string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("get document: %w", err)
	}
	if !doc.Queryable() {
		return domain.Answer{}, domain.ErrNotIndexed
	}

	asked := s.nowMillis()
	ans, err := s.gateway.Query(ctx, doc.IndexRef(), question, strings.TrimSpace(instructions))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("query document: %w", err)
	}

	s.recordExchange(ctx, id, question, ans, asked)
	return ans, nil
}

func (s *Service) recordExchange(ctx context.Context, id, question string, ans domain.Answer, asked int64) {
	if s.convs == nil {
		return
	}
	log := logger.FromContext(ctx)

	q, err := conversation.NewMessage(conversation.RoleUser, question, nil, asked)
	if err != nil {
		log.Warn("Question not recorded", zap.Error(err))
		return
	}
	msgs := []conversation.Message{q}
	if a, err := conversation.NewMessage(conversation.RoleAI, ans.Answer, ans.Sources, s.nowMillis()); err == nil {
		msgs = append(msgs, a)
	}

	if err := s.convs.Append(ctx, id, msgs...); err != nil {
		log.Warn("Conversation not recorded", zap.String("document_id", id), zap.Error(err))
	}
}

// Context explains a term. The document must exist but need not be ready;
// the lookup itself does not use document content.
func (s *Service) Context(ctx context.Context, id, term string) (domain.TermExplanation, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return domain.TermExplanation{}, fmt.Errorf("term is required: %w", domain.ErrInvalidInput)
	}

	if _, err := s.repo.Get(ctx, id); err != nil {
		return domain.TermExplanation{}, fmt.Errorf("get document: %w", err)
	}

	te, err := s.terms.LookupTerm(ctx, term)
	if err != nil {
		return domain.TermExplanation{}, fmt.Errorf("lookup term: %w", err)
	}
	te.Term = term
	return te, nil
}

// History returns the question/answer log of a document, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]conversation.Message, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if s.convs == nil {
		return []conversation.Message{}, nil
	}

	msgs, err := s.convs.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return msgs, nil
}

// Delete removes a document. Returns false when it does not exist.
// File and index cleanup is best-effort and never blocks removing the record.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	doc, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get document: %w", err)
	}

	ctx, log := logger.WithDocument(ctx, id)

	var g errgroup.Group
	g.Go(func() error {
		return s.storage.RemoveAll(id)
	})
	if ref := doc.IndexRef(); ref != "" {
		g.Go(func() error {
			removed, err := s.storage.RemoveIndex(ref)
			if err == nil && !removed {
				log.Debug("Index left in place", zap.String("index_ref", ref))
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("Document cleanup incomplete", zap.Error(err))
	}

	if s.convs != nil {
		if err := s.convs.Delete(ctx, id); err != nil {
			log.Warn("Conversation not deleted", zap.Error(err))
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete document: %w", err)
	}
	return true, nil
}

func (s *Service) discardDir(log *zap.Logger, id string) {
	if err := s.storage.RemoveAll(id); err != nil {
		log.Warn("Failed to remove document directory", zap.Error(err))
	}
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}
