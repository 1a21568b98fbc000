package notify

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"ngx_pipeline/internal/platform/config"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/ratelimiter"
)

// FromConfig は有効なチャネルだけを束ねた Multi を返します。
// rdb が nil の場合、Redis チャネルは有効でも追加しません。
func FromConfig(cfg config.NotifyConfig, rdb *redis.Client, client *http.Client, log *logger.Logger) *Multi {
	var m Multi
	if cfg.Log {
		m.notifiers = append(m.notifiers, NewLogNotifier(log))
	}
	if cfg.Slack.Enabled && cfg.Slack.WebhookURL != "" {
		limiter := ratelimiter.NewRateLimiter(cfg.Slack.RequestsPerMinute, time.Minute)
		m.notifiers = append(m.notifiers, NewSlackNotifier(cfg.Slack.WebhookURL, client, limiter))
	}
	if cfg.Redis.Enabled {
		if rdb == nil {
			log.Warn("redis notifications enabled but redis is disabled; channel skipped")
		} else {
			m.notifiers = append(m.notifiers, NewRedisNotifier(rdb, cfg.Redis.Channel))
		}
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		m.notifiers = append(m.notifiers, NewKafkaNotifier(NewKafkaWriter(cfg.Kafka.Brokers), cfg.Kafka.Topic))
	}
	log.Info("alert notifier configured", logger.Int("channels", m.Len()))
	return &m
}
