package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"ngx_pipeline/internal/platform/config"
	"ngx_pipeline/internal/platform/logger"
)

// NewRedisClient は設定からRedisクライアントを生成し、接続確認を行います。
// Redisが無効化されている場合は (nil, nil) を返し、呼び出し側はキャッシュや通知をバイパスします。
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		log.Info("redis disabled")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 接続確認
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Error("redis connection failed", logger.String("address", cfg.Addr), logger.Error(err))
		_ = rdb.Close()
		return nil, err
	}

	log.Info("redis connection successful", logger.String("address", cfg.Addr))
	return rdb, nil
}
