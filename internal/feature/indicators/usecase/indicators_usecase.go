// Package usecase はテクニカル指標の計算と保存を実装します。
// 計算そのもの（engine.go）は純粋関数で、ここでは価格履歴の読み込みとスナップショットの保存を扱います。
package usecase

import (
	"context"
	"fmt"
	"time"

	"ngx_pipeline/internal/feature/indicators/domain"
	"ngx_pipeline/internal/feature/indicators/domain/entity"
	priceentity "ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/tradedate"
)

// DefaultDepth is the number of observations loaded per instrument when the caller passes 0.
const DefaultDepth = 100

// PriceHistory は指標計算に必要な価格履歴の読み込みを抽象化します。
type PriceHistory interface {
	History(ctx context.Context, code string, end time.Time, n int) ([]priceentity.PriceObservation, error)
}

// SnapshotRepository は指標スナップショットの永続化層を抽象化します。
type SnapshotRepository interface {
	Upsert(ctx context.Context, s entity.Snapshot) error
	Range(ctx context.Context, code string, from, to time.Time) ([]entity.Snapshot, error)
	// Before returns up to n snapshots dated strictly before date, ascending.
	Before(ctx context.Context, code string, date time.Time, n int) ([]entity.Snapshot, error)
}

// Result は1銘柄分の計算結果です。
type Result struct {
	Current entity.Snapshot
	Prior   *entity.Snapshot
	Price   priceentity.PriceObservation // observation the current snapshot is keyed on
}

// IndicatorsUsecase は指標の計算・保存・照会を提供します。
type IndicatorsUsecase struct {
	prices    PriceHistory
	snapshots SnapshotRepository
	log       *logger.Logger
}

// NewIndicatorsUsecase は価格履歴とスナップショットのリポジトリからIndicatorsUsecaseを生成します。
func NewIndicatorsUsecase(prices PriceHistory, snapshots SnapshotRepository, log *logger.Logger) *IndicatorsUsecase {
	return &IndicatorsUsecase{prices: prices, snapshots: snapshots, log: log}
}

// ComputeFor は asOf までの直近 depth 件の履歴から指標を計算し、最終観測日をキーに保存します。
// 観測が1件もない銘柄は domain.ErrNoHistory を返します。
func (u *IndicatorsUsecase) ComputeFor(ctx context.Context, code string, asOf time.Time, depth int) (Result, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	history, err := u.prices.History(ctx, code, tradedate.Normalize(asOf), depth)
	if err != nil {
		return Result{}, fmt.Errorf("load history %s: %w", code, err)
	}
	if len(history) == 0 {
		return Result{}, fmt.Errorf("%s: %w", code, domain.ErrNoHistory)
	}

	points := make([]Point, len(history))
	for i, obs := range history {
		points[i] = Point{Date: obs.Date, Close: obs.Close.InexactFloat64()}
	}
	current, prior, _ := Compute(code, points)

	if err := u.snapshots.Upsert(ctx, current); err != nil {
		return Result{}, fmt.Errorf("save snapshot %s: %w", code, err)
	}
	u.log.Debug("indicators computed",
		logger.String("code", code),
		logger.Int("observations", current.Observations),
		logger.String("cross", string(current.Cross)))

	return Result{Current: current, Prior: prior, Price: history[len(history)-1]}, nil
}

// History は期間内のスナップショットを日付の昇順で返します。ゼロ値の from/to は無制限を意味します。
func (u *IndicatorsUsecase) History(ctx context.Context, code string, from, to time.Time) ([]entity.Snapshot, error) {
	if !from.IsZero() {
		from = tradedate.Normalize(from)
	}
	if !to.IsZero() {
		to = tradedate.Normalize(to)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: to %s is before from %s", domain.ErrInvalidRange, tradedate.Format(to), tradedate.Format(from))
	}
	return u.snapshots.Range(ctx, code, from, to)
}

// Recent は date より前の直近 n 件のスナップショットを昇順で返します。
func (u *IndicatorsUsecase) Recent(ctx context.Context, code string, date time.Time, n int) ([]entity.Snapshot, error) {
	return u.snapshots.Before(ctx, code, tradedate.Normalize(date), n)
}

// TrailingVolatility は before より前の最大 n 件のスナップショットについて、
// 値のあるボラティリティの平均を返します。値が1件もなければ nil です。
func (u *IndicatorsUsecase) TrailingVolatility(ctx context.Context, code string, before time.Time, n int) (*float64, error) {
	snaps, err := u.Recent(ctx, code, before, n)
	if err != nil {
		return nil, fmt.Errorf("trailing volatility %s: %w", code, err)
	}
	var sum float64
	var count int
	for _, s := range snaps {
		if s.Volatility30 != nil {
			sum += *s.Volatility30
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}
	avg := sum / float64(count)
	return &avg, nil
}
