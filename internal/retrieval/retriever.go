package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/drona-ai/grading-api/internal/models"
)

// ContextRetriever returns reference passages relevant to a query.
// Retrieval must never abort rubric generation: implementations degrade
// to an empty slice when the search collaborator is unavailable, and
// downstream logic treats zero context as "no textbook grounding
// available for this query".
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) []models.RetrievedChunk
}

// Config tunes the retriever wrapper.
type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Retriever wraps a Searcher with a bounded timeout, a redis read-through
// cache, and degrade-to-empty failure handling.
type Retriever struct {
	searcher Searcher
	cache    *redis.Client
	cfg      Config
	logger   zerolog.Logger
}

// NewRetriever builds a retriever. The cache client may be nil, in which
// case every call goes straight to the searcher.
func NewRetriever(searcher Searcher, cache *redis.Client, cfg Config, logger zerolog.Logger) *Retriever {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	return &Retriever{
		searcher: searcher,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.With().Str("component", "context_retriever").Logger(),
	}
}

// Retrieve fetches the top-k most relevant reference passages for the
// query. Cache misses fall through to the search collaborator; any
// transport or service error is absorbed here and yields empty context.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) []models.RetrievedChunk {
	if query == "" {
		return nil
	}
	if topK < 1 {
		topK = 1
	}

	key := cacheKey(query, topK)
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key).Result(); err == nil {
			var chunks []models.RetrievedChunk
			if unmarshalErr := json.Unmarshal([]byte(cached), &chunks); unmarshalErr == nil {
				r.logger.Debug().Str("key", key).Msg("retrieval cache hit")
				return chunks
			}
		} else if err != redis.Nil {
			r.logger.Warn().Err(err).Msg("failed to read retrieval cache")
		}
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	chunks, err := r.searcher.Search(searchCtx, query, topK)
	if err != nil {
		r.logger.Warn().Err(err).Str("query", query).Msg("retrieval failed, degrading to empty context")
		return nil
	}

	if r.cache != nil && len(chunks) > 0 {
		if payload, err := json.Marshal(chunks); err == nil {
			if err := r.cache.Set(ctx, key, payload, r.cfg.CacheTTL).Err(); err != nil {
				r.logger.Warn().Err(err).Msg("failed to store retrieval cache")
			}
		}
	}

	return chunks
}

func cacheKey(query string, topK int) string {
	digest := sha256.Sum256([]byte(query))
	return fmt.Sprintf("retrieval:ctx:%s:%d", hex.EncodeToString(digest[:8]), topK)
}
