package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/absola/internal/db"
	"github.com/kailas-cloud/absola/internal/domain"
	domdoc "github.com/kailas-cloud/absola/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	HSetIfEqual(ctx context.Context, key, field, expected string, fields map[string]string) (string, bool, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRange(ctx context.Context, key string) ([]string, error)
	ZRem(ctx context.Context, key string, members ...string) error
}

// Repo implements usecase/document.Repository on hashes plus a sorted-set index by creation time.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a new record: HSET then ZADD into the creation index.
// On ZADD failure, rolls back the HSET via DEL.
func (r *Repo) Create(ctx context.Context, doc domdoc.Document) error {
	key := docKey(doc.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if exists {
		return fmt.Errorf("document %s already exists", doc.ID())
	}

	if err := r.store.HSet(ctx, key, buildHashFields(&doc)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}

	if err := r.store.ZAdd(ctx, listKey(), float64(doc.CreatedAt()), doc.ID()); err != nil {
		_ = r.store.Del(ctx, key)
		return fmt.Errorf("zadd %s: %w", doc.ID(), err)
	}

	return nil
}

// Get returns a record by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := docKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	doc, err := parseHashFields(id, m)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("read %s: %w", key, err)
	}
	return doc, nil
}

// List returns all records, newest first. Index entries whose hash is gone or corrupt are skipped.
func (r *Repo) List(ctx context.Context) ([]domdoc.Document, error) {
	ids, err := r.store.ZRevRange(ctx, listKey())
	if err != nil {
		return nil, fmt.Errorf("zrange %s: %w", listKey(), err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		doc, err := parseHashFields(ids[i], m)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// UpdateStatus writes a terminal status if the stored record is still processing.
// The check and the write are one server-side step, so a record deleted meanwhile stays deleted.
func (r *Repo) UpdateStatus(ctx context.Context, doc domdoc.Document) error {
	if !doc.Status().Terminal() {
		return fmt.Errorf("status %q: %w", doc.Status(), domain.ErrInvalidTransition)
	}

	key := docKey(doc.ID())
	fields := map[string]string{
		fieldStatus:    string(doc.Status()),
		fieldIndexRef:  doc.IndexRef(),
		fieldUpdatedAt: strconv.FormatInt(doc.UpdatedAt(), 10),
	}
	current, ok, err := r.store.HSetIfEqual(ctx, key, fieldStatus, string(domdoc.StatusProcessing), fields)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("update status %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%s -> %s: %w", current, doc.Status(), domain.ErrInvalidTransition)
	}
	return nil
}

// SaveSummary stores the summary unless one is present and returns the stored value.
func (r *Repo) SaveSummary(ctx context.Context, id, summary string, updatedAt int64) (string, error) {
	if summary == "" {
		return "", fmt.Errorf("empty summary: %w", domain.ErrInvalidInput)
	}

	key := docKey(id)
	fields := map[string]string{
		fieldSummary:   summary,
		fieldUpdatedAt: strconv.FormatInt(updatedAt, 10),
	}
	existing, ok, err := r.store.HSetIfEqual(ctx, key, fieldSummary, "", fields)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", domain.ErrDocumentNotFound
		}
		return "", fmt.Errorf("save summary %s: %w", key, err)
	}
	if !ok {
		return existing, nil
	}
	return summary, nil
}

// Delete removes a record and its index entry.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := r.store.ZRem(ctx, listKey(), id); err != nil {
		return fmt.Errorf("zrem %s: %w", id, err)
	}
	return nil
}

func docKey(id string) string {
	return fmt.Sprintf("%sdoc:%s", domain.KeyPrefix, id)
}

func listKey() string {
	return domain.KeyPrefix + "docs"
}
