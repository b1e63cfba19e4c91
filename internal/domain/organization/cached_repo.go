package organization

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/appq/appq/internal/platform/cache"
	"github.com/appq/appq/internal/platform/db"
)

// cachedCategoryRepo serves GetByID from a read-through cache. Cache errors
// are logged and the call falls through to the wrapped repository.
type cachedCategoryRepo struct {
	CategoryRepository
	cache  cache.Provider
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedCategoryRepo wraps repo with a cache. A nil provider or a
// non-positive ttl returns repo unchanged.
func NewCachedCategoryRepo(repo CategoryRepository, provider cache.Provider, ttl time.Duration, logger zerolog.Logger) CategoryRepository {
	if provider == nil || ttl <= 0 {
		return repo
	}
	return &cachedCategoryRepo{
		CategoryRepository: repo,
		cache:              provider,
		ttl:                ttl,
		logger:             logger.With().Str("component", "category_cache").Logger(),
	}
}

func categoryCacheKey(ctx context.Context, id uuid.UUID) string {
	tenant := db.TenantFromContext(ctx)
	if tenant == "" {
		tenant = "_"
	}
	return "category:" + tenant + ":" + id.String()
}

func (r *cachedCategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	key := categoryCacheKey(ctx, id)

	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var c Category
		if jerr := json.Unmarshal(raw, &c); jerr == nil {
			return &c, nil
		}
		r.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case !errors.Is(err, cache.ErrCacheMiss):
		r.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	c, err := r.CategoryRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(c); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return c, nil
}

func (r *cachedCategoryRepo) Update(ctx context.Context, c *Category) error {
	if err := r.CategoryRepository.Update(ctx, c); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, categoryCacheKey(ctx, c.ID)); err != nil {
		r.logger.Warn().Err(err).Str("category_id", c.ID.String()).Msg("cache invalidation failed")
	}
	return nil
}
