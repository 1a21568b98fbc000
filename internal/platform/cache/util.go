package cache

import (
	"time"
)

// TimeUntilNext は loc における次の hour:minute までの期間を返します。
// 既にその時刻を過ぎている場合は翌日の同時刻までの期間になります。
func TimeUntilNext(now time.Time, loc *time.Location, hour, minute int) time.Duration {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)

	// 今日の指定時刻が既に過ぎている場合は明日の同時刻を使用
	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}

// TTLUntilRefresh は ttl と次回更新時刻までの期間のうち短い方を返します。
// 日次データのキャッシュが更新後まで残らないようにするために使います。
func TTLUntilRefresh(ttl time.Duration, now time.Time, loc *time.Location, hour, minute int) time.Duration {
	until := TimeUntilNext(now, loc, hour, minute)
	if ttl <= 0 || until < ttl {
		return until
	}
	return ttl
}
