package termcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/absola/internal/db"
	"github.com/kailas-cloud/absola/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "term_cache:"

// store is the consumer interface for the term cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedLookup caches term explanations in a key-value store with a TTL.
type CachedLookup struct {
	inner      domain.TermLookup
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.TermLookup,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedLookup {
	return &CachedLookup{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

type cachedTerm struct {
	Explanation string `json:"explanation"`
	Provider    string `json:"provider"`
}

// LookupTerm returns a cached explanation or calls the inner lookup.
// Cache failures never fail the lookup.
func (c *CachedLookup) LookupTerm(ctx context.Context, term string) (domain.TermExplanation, error) {
	key := cacheKey(term)

	if hit, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		hit.Term = term
		return hit, nil
	}

	c.incCache("miss")

	result, err := c.inner.LookupTerm(ctx, term)
	if err != nil {
		return domain.TermExplanation{}, fmt.Errorf("lookup term: %w", err)
	}

	c.putToCache(ctx, key, result)
	return result, nil
}

func (c *CachedLookup) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey folds case and surrounding whitespace so "Mitosis" and " mitosis" share an entry.
func cacheKey(term string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(term))))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedLookup) getFromCache(ctx context.Context, key string) (domain.TermExplanation, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached term", zap.String("key", key), zap.Error(err))
		}
		return domain.TermExplanation{}, false
	}
	if len(data) == 0 {
		return domain.TermExplanation{}, false
	}

	var ct cachedTerm
	if err := json.Unmarshal(data, &ct); err != nil {
		c.logger.Warn("Failed to parse cached term", zap.String("key", key), zap.Error(err))
		return domain.TermExplanation{}, false
	}

	return domain.TermExplanation{Explanation: ct.Explanation, Provider: ct.Provider}, true
}

func (c *CachedLookup) putToCache(ctx context.Context, key string, te domain.TermExplanation) {
	data, err := json.Marshal(cachedTerm{Explanation: te.Explanation, Provider: te.Provider})
	if err != nil {
		c.logger.Warn("Failed to encode term", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache term", zap.String("key", key), zap.Error(err))
	}
}
