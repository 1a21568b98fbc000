package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ngx_pipeline/internal/feature/alerts/domain/entity"
	"ngx_pipeline/internal/feature/alerts/usecase"
)

const ChannelRedis = "redis"

// RedisNotifier は通知を Redis の Pub/Sub チャネルに PUBLISH します。
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

var _ usecase.Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, msg entity.Message) []entity.Delivery {
	return []entity.Delivery{{Channel: ChannelRedis, Err: n.publish(ctx, msg)}}
}

func (n *RedisNotifier) publish(ctx context.Context, msg entity.Message) error {
	b, err := encode(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", n.channel, err)
	}
	return nil
}
