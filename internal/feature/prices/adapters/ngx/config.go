// Package ngx scrapes the NGX equities price list page.
package ngx

import (
	"time"

	"ngx_pipeline/internal/platform/config"
)

// SourceTag is stored on every observation fetched by this package.
const SourceTag = "ngx"

// Config holds configuration for the NGX price list fetcher.
type Config struct {
	URL         string        // price list page
	MaxAttempts int           // total attempts including the first
	Backoff     time.Duration // linear backoff base between attempts
}

// ConfigFrom maps the application source settings onto the fetcher config.
func ConfigFrom(c config.SourceConfig) Config {
	return Config{
		URL:         c.URL,
		MaxAttempts: c.MaxAttempts,
		Backoff:     c.Backoff,
	}
}
