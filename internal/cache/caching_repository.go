// Package cache provides a Redis read-through decorator for the trading results store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/spimexpulse/internal/domain/models"
	"github.com/guttosm/spimexpulse/internal/logger"
	"github.com/guttosm/spimexpulse/internal/storage"
)

const (
	defaultTTL       = 24 * time.Hour
	defaultNamespace = "spimex"
	scanCount        = 200
)

// CachingResultsRepository decorates a TradingResultsRepository with Redis caching.
// Reads are served from Redis when possible; a committed ingestion drops the whole namespace.
type CachingResultsRepository struct {
	inner     storage.TradingResultsRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ storage.TradingResultsRepository = (*CachingResultsRepository)(nil)

// NewCachingResultsRepository wraps inner. A nil rdb disables caching entirely.
// If ttl is 0, it defaults to 24 hours. If namespace is empty, it uses "spimex".
func NewCachingResultsRepository(rdb *redis.Client, ttl time.Duration, inner storage.TradingResultsRepository, namespace string) *CachingResultsRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CachingResultsRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// HasResultsForDate always reads through: ingestion dedupe must see the database.
func (c *CachingResultsRepository) HasResultsForDate(ctx context.Context, date time.Time) (bool, error) {
	return c.inner.HasResultsForDate(ctx, date)
}

// SaveIngestionBatch commits the batch and then invalidates every cached read.
func (c *CachingResultsRepository) SaveIngestionBatch(ctx context.Context, batch models.IngestionBatch) error {
	if err := c.inner.SaveIngestionBatch(ctx, batch); err != nil {
		return err
	}
	if c.rdb == nil || batch.IsEmpty() {
		return nil
	}
	// Best effort: entries expire with the TTL anyway
	if err := c.deleteByPattern(ctx, c.namespace+":*"); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("namespace", c.namespace).Msg("cache invalidation failed")
	}
	return nil
}

func (c *CachingResultsRepository) GetResultsInPeriod(ctx context.Context, start, end time.Time, filter models.ResultsFilter) ([]models.TradingResult, error) {
	key := c.key("period", day(start), day(end), facets(filter))
	return readThrough(ctx, c, key, func() ([]models.TradingResult, error) {
		return c.inner.GetResultsInPeriod(ctx, start, end, filter)
	})
}

func (c *CachingResultsRepository) GetResultsForDate(ctx context.Context, date time.Time, filter models.ResultsFilter) ([]models.TradingResult, error) {
	key := c.key("date", day(date), facets(filter))
	return readThrough(ctx, c, key, func() ([]models.TradingResult, error) {
		return c.inner.GetResultsForDate(ctx, date, filter)
	})
}

// GetLastTradeDate caches only a non-empty answer, so the first ingestion is visible immediately.
func (c *CachingResultsRepository) GetLastTradeDate(ctx context.Context) (*time.Time, error) {
	if c.rdb == nil {
		return c.inner.GetLastTradeDate(ctx)
	}
	key := c.key("last_date")
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var d time.Time
		if err := json.Unmarshal(b, &d); err == nil {
			return &d, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	last, err := c.inner.GetLastTradeDate(ctx)
	if err != nil || last == nil {
		return last, err
	}
	if b, err := json.Marshal(last); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return last, nil
}

func (c *CachingResultsRepository) GetTradingDatesSince(ctx context.Context, since, until time.Time) ([]time.Time, error) {
	key := c.key("dates", day(since), day(until))
	return readThrough(ctx, c, key, func() ([]time.Time, error) {
		return c.inner.GetTradingDatesSince(ctx, since, until)
	})
}

// readThrough returns the cached value for key or loads, stores and returns it.
func readThrough[T any](ctx context.Context, c *CachingResultsRepository, key string, load func() (T, error)) (T, error) {
	if c.rdb == nil {
		return load()
	}

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out T
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return out, nil
}

func (c *CachingResultsRepository) key(parts ...string) string {
	return c.namespace + ":" + strings.Join(parts, ":")
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingResultsRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

func day(t time.Time) string {
	return t.Format(models.DateLayout)
}

func facets(f models.ResultsFilter) string {
	return fmt.Sprintf("%s:%s:%s", safe(f.OilID), safe(f.DeliveryTypeID), safe(f.DeliveryBasisID))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
