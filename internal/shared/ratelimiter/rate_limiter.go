package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter は外部サービス呼び出しの頻度を制限するインターフェースです。
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimiter は interval あたり limit 回までの呼び出しを許可します。
type RateLimiter struct {
	l *rate.Limiter
}

// NewRateLimiter は interval ごとに limit 回のバーストを許可する RateLimiter を生成します。
// limit が 0 以下の場合は制限なしになります。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	if limit <= 0 || interval <= 0 {
		return &RateLimiter{l: rate.NewLimiter(rate.Inf, 0)}
	}
	every := interval / time.Duration(limit)
	return &RateLimiter{l: rate.NewLimiter(rate.Every(every), limit)}
}

// Wait は次の呼び出しが許可されるまで待機します。ctx がキャンセルされた場合はエラーを返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.l.Wait(ctx)
}

// Unlimited は常に即座に許可する Limiter です。テストや制限不要な呼び出し元向け。
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
