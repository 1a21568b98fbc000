package di

import (
	"github.com/redis/go-redis/v9"

	"ngx_pipeline/internal/feature/pipeline/usecase"
	"ngx_pipeline/internal/platform/lock"
)

// NewRunLocker creates the cross-process run lock.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise it returns nil and runs are only serialized within the process.
func NewRunLocker(rdb *redis.Client) usecase.Locker {
	if rdb != nil {
		return lock.NewRedisLock(rdb, "ngx:pipeline")
	}
	return nil
}
