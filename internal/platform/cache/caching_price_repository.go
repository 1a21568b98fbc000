// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/feature/prices/usecase"
	"ngx_pipeline/internal/shared/tradedate"
)

// CachingPriceRepository decorates a PriceRepository with a Redis read cache.
// Reads used by the query API are cached; writes go to the inner repository
// and then invalidate every key they could have changed.
type CachingPriceRepository struct {
	inner     usecase.PriceRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string

	// refresh, when set, caps every TTL at the next daily load.
	refresh *dailyRefresh
	now     func() time.Time
}

type dailyRefresh struct {
	loc          *time.Location
	hour, minute int
}

var _ usecase.PriceRepository = (*CachingPriceRepository)(nil)

// NewCachingPriceRepository decorates inner with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "prices".
// A nil rdb disables caching.
func NewCachingPriceRepository(rdb *redis.Client, ttl time.Duration, inner usecase.PriceRepository, namespace string) *CachingPriceRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "prices"
	}
	return &CachingPriceRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
	}
}

// WithDailyRefresh caps cached entries so none outlives the next hour:minute in loc.
func (c *CachingPriceRepository) WithDailyRefresh(loc *time.Location, hour, minute int) *CachingPriceRepository {
	c.refresh = &dailyRefresh{loc: loc, hour: hour, minute: minute}
	return c
}

func (c *CachingPriceRepository) entryTTL() time.Duration {
	if c.refresh == nil {
		return c.ttl
	}
	return TTLUntilRefresh(c.ttl, c.now(), c.refresh.loc, c.refresh.hour, c.refresh.minute)
}

// Upsert writes through and invalidates the instrument's cached reads.
func (c *CachingPriceRepository) Upsert(ctx context.Context, obs entity.PriceObservation) error {
	if err := c.inner.Upsert(ctx, obs); err != nil {
		return err
	}
	c.invalidate(ctx, []entity.PriceObservation{obs})
	return nil
}

// BulkUpsert writes through and invalidates cached reads when anything was committed.
func (c *CachingPriceRepository) BulkUpsert(ctx context.Context, obs []entity.PriceObservation, batchSize int) entity.BulkUpsertResult {
	res := c.inner.BulkUpsert(ctx, obs, batchSize)
	if res.Loaded > 0 {
		c.invalidate(ctx, obs)
	}
	return res
}

// History is cached per (code, end, n).
func (c *CachingPriceRepository) History(ctx context.Context, code string, end time.Time, n int) ([]entity.PriceObservation, error) {
	key := fmt.Sprintf("%s:history:%s:%s:%d", c.namespace, safe(code), tradedate.Format(end), n)
	return readThrough(ctx, c, key, func() ([]entity.PriceObservation, error) {
		return c.inner.History(ctx, code, end, n)
	})
}

// Latest is cached as a single key.
func (c *CachingPriceRepository) Latest(ctx context.Context) ([]entity.PriceObservation, error) {
	return readThrough(ctx, c, c.namespace+":latest", func() ([]entity.PriceObservation, error) {
		return c.inner.Latest(ctx)
	})
}

// LatestByCode is cached per code.
func (c *CachingPriceRepository) LatestByCode(ctx context.Context, code string) (entity.PriceObservation, error) {
	return readThrough(ctx, c, c.namespace+":latest:"+safe(code), func() (entity.PriceObservation, error) {
		return c.inner.LatestByCode(ctx, code)
	})
}

// PriorCloses is only used by the pipeline itself and is never cached.
func (c *CachingPriceRepository) PriorCloses(ctx context.Context, codes []string, before time.Time) (map[string]decimal.Decimal, error) {
	return c.inner.PriorCloses(ctx, codes, before)
}

// ClosesAsOf is bounded by a run date and is never cached.
func (c *CachingPriceRepository) ClosesAsOf(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	return c.inner.ClosesAsOf(ctx, date)
}

// readThrough implements cache-aside for one key.
func readThrough[T any](ctx context.Context, c *CachingPriceRepository, key string, load func() (T, error)) (T, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return load()
	}

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out T
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := load()
	if err != nil {
		return out, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.entryTTL()).Err()
	}
	return out, nil
}

// invalidate drops the latest-price keys and the history keys of every code in obs.
func (c *CachingPriceRepository) invalidate(ctx context.Context, obs []entity.PriceObservation) {
	if c.rdb == nil || len(obs) == 0 {
		return
	}
	// Best effort: a failed deletion only leaves entries until their TTL expires
	_ = c.deleteByPattern(ctx, c.namespace+":latest*")

	seen := map[string]struct{}{}
	for _, o := range obs {
		if _, ok := seen[o.Code]; ok {
			continue
		}
		seen[o.Code] = struct{}{}
		_ = c.deleteByPattern(ctx, fmt.Sprintf("%s:history:%s:*", c.namespace, safe(o.Code)))
	}
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingPriceRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
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

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
