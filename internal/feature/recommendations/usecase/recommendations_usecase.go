// Package usecase は売買シグナルの生成、スコアリング、推奨の管理を実装します。
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ngx_pipeline/internal/feature/recommendations/domain/entity"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/tradedate"
)

// DefaultTopLimit is the page size of TopPicks when the caller passes 0.
const DefaultTopLimit = 10

// RecommendationRepository は推奨の永続化層を抽象化します。
type RecommendationRepository interface {
	// Upsert writes recommendations keyed by (code, date) and returns them with IDs set.
	Upsert(ctx context.Context, recs []entity.Recommendation) ([]entity.Recommendation, error)
	// Top returns the best recommendations of the most recent date, filtered by signal when any are given.
	Top(ctx context.Context, signals []entity.Signal, limit int) ([]entity.Recommendation, error)
	Ongoing(ctx context.Context) ([]entity.Recommendation, error)
	SetOutcome(ctx context.Context, id uint, outcome entity.Outcome, at time.Time) error
}

// GenerateResult は Generate の結果です。
type GenerateResult struct {
	Recommendations []entity.Recommendation
	Excluded        []Exclusion
}

// ReconcileResult は ReconcileOutcomes で更新された件数です。
type ReconcileResult struct {
	HitTarget int
	HitStop   int
	Expired   int
}

// RecommendationsUsecase は推奨の生成と照会を提供します。
type RecommendationsUsecase struct {
	repo    RecommendationRepository
	advisor *Advisor
	log     *logger.Logger
}

// NewRecommendationsUsecase はRecommendationsUsecaseを生成します。
func NewRecommendationsUsecase(repo RecommendationRepository, cfg AdvisorConfig, log *logger.Logger) *RecommendationsUsecase {
	return &RecommendationsUsecase{repo: repo, advisor: NewAdvisor(cfg), log: log}
}

// Generate は候補を評価・順位付けし、date をキーに保存します。
// 必須指標が欠けた候補やしきい値未満の候補は Excluded に入り、エラーにはなりません。
func (u *RecommendationsUsecase) Generate(ctx context.Context, date time.Time, candidates []Candidate) (GenerateResult, error) {
	date = tradedate.Normalize(date)
	dated := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Date = date
		dated[i] = c
	}
	recs, excluded := u.advisor.Rank(dated)
	for _, ex := range excluded {
		u.log.Debug("recommendation excluded", logger.String("code", ex.Code), logger.String("reason", ex.Reason))
	}
	if len(recs) == 0 {
		return GenerateResult{Excluded: excluded}, nil
	}
	saved, err := u.repo.Upsert(ctx, recs)
	if err != nil {
		return GenerateResult{Excluded: excluded}, fmt.Errorf("save recommendations: %w", err)
	}
	SortRecommendations(saved)
	return GenerateResult{Recommendations: saved, Excluded: excluded}, nil
}

// TopPicks は直近日の推奨を順位順に返します。signals が空なら全シグナルが対象です。
func (u *RecommendationsUsecase) TopPicks(ctx context.Context, signals []entity.Signal, limit int) ([]entity.Recommendation, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return u.repo.Top(ctx, signals, limit)
}

// ReconcileOutcomes は継続中の推奨を最新価格と照合し、目標到達・損切り・期限切れを記録します。
// latest に価格のない銘柄は期限切れの判定のみ行います。
func (u *RecommendationsUsecase) ReconcileOutcomes(ctx context.Context, asOf time.Time, latest map[string]decimal.Decimal) (ReconcileResult, error) {
	var res ReconcileResult
	asOf = tradedate.Normalize(asOf)

	ongoing, err := u.repo.Ongoing(ctx)
	if err != nil {
		return res, fmt.Errorf("list ongoing recommendations: %w", err)
	}
	for _, r := range ongoing {
		if !r.Date.Before(asOf) {
			continue
		}
		outcome := entity.OutcomeOngoing
		if price, ok := latest[r.Code]; ok {
			outcome = priceOutcome(r, price)
		}
		if outcome == entity.OutcomeOngoing && !r.ExpiresOn.After(asOf) {
			outcome = entity.OutcomeExpired
		}
		if outcome == entity.OutcomeOngoing {
			continue
		}
		if err := u.repo.SetOutcome(ctx, r.ID, outcome, asOf); err != nil {
			return res, fmt.Errorf("set outcome %s: %w", r.Code, err)
		}
		switch outcome {
		case entity.OutcomeHitTarget:
			res.HitTarget++
		case entity.OutcomeHitStop:
			res.HitStop++
		case entity.OutcomeExpired:
			res.Expired++
		}
	}
	if res != (ReconcileResult{}) {
		u.log.Info("recommendation outcomes reconciled",
			logger.Int("hit_target", res.HitTarget),
			logger.Int("hit_stop", res.HitStop),
			logger.Int("expired", res.Expired))
	}
	return res, nil
}

func priceOutcome(r entity.Recommendation, price decimal.Decimal) entity.Outcome {
	if !r.TargetPrice.Valid || !r.StopLoss.Valid {
		return entity.OutcomeOngoing
	}
	target, stop := r.TargetPrice.Decimal, r.StopLoss.Decimal
	switch {
	case r.Signal.IsBuy() && price.GreaterThanOrEqual(target):
		return entity.OutcomeHitTarget
	case r.Signal.IsBuy() && price.LessThanOrEqual(stop):
		return entity.OutcomeHitStop
	case r.Signal.IsSell() && price.LessThanOrEqual(target):
		return entity.OutcomeHitTarget
	case r.Signal.IsSell() && price.GreaterThanOrEqual(stop):
		return entity.OutcomeHitStop
	}
	return entity.OutcomeOngoing
}
