// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"ngx_pipeline/internal/feature/prices/adapters/ngx"
	"ngx_pipeline/internal/platform/config"
	infrahttp "ngx_pipeline/internal/platform/http"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/ratelimiter"
)

// NewFetcher creates a fully configured NGX price list fetcher with HTTP client and rate limiter.
func NewFetcher(cfg config.SourceConfig, log *logger.Logger) *ngx.Fetcher {
	client := infrahttp.NewHTTPClient(cfg.Timeout, cfg.UserAgent)
	var limiter ratelimiter.Limiter = ratelimiter.Unlimited{}
	if cfg.RequestsPerMinute > 0 {
		limiter = ratelimiter.NewRateLimiter(cfg.RequestsPerMinute, time.Minute)
	}
	return ngx.NewFetcher(ngx.ConfigFrom(cfg), client, limiter, log)
}
