// Package adapters はrecommendationsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ngx_pipeline/internal/feature/recommendations/domain/entity"
	"ngx_pipeline/internal/feature/recommendations/usecase"
	"ngx_pipeline/internal/shared/tradedate"
)

// reasonSep joins reasons in one text column; reasons never contain newlines.
const reasonSep = "\n"

// RecommendationModel は recommendations テーブルの行です。
type RecommendationModel struct {
	ID              uint                `gorm:"primaryKey"`
	Code            string              `gorm:"size:20;not null;uniqueIndex:recommendation_code_date,priority:1"`
	Date            time.Time           `gorm:"not null;uniqueIndex:recommendation_code_date,priority:2;index"`
	Signal          string              `gorm:"size:12;not null;index"`
	Confidence      float64             `gorm:"not null"`
	Score           float64             `gorm:"not null"`
	TechnicalScore  float64             `gorm:"not null"`
	MomentumScore   float64             `gorm:"not null"`
	VolatilityScore float64             `gorm:"not null"`
	TrendScore      float64             `gorm:"not null"`
	VolumeScore     float64             `gorm:"not null"`
	Category        string              `gorm:"size:10;not null"`
	CurrentPrice    decimal.Decimal     `gorm:"type:numeric(18,4);not null"`
	TargetPrice     decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	StopLoss        decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	Risk            string              `gorm:"size:10;not null"`
	Reasons         string              `gorm:"type:text"`
	Outcome         string              `gorm:"size:12;not null;index"`
	OutcomeDate     *time.Time
	ExpiresOn       time.Time `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (RecommendationModel) TableName() string { return "recommendations" }

// upsertColumns excludes outcome columns so a same-day re-run keeps a resolved outcome.
var upsertColumns = []string{
	"signal", "confidence", "score", "technical_score", "momentum_score", "volatility_score",
	"trend_score", "volume_score", "category", "current_price", "target_price", "stop_loss",
	"risk", "reasons", "expires_on", "updated_at",
}

func fromEntity(r entity.Recommendation) RecommendationModel {
	outcome := r.Outcome
	if outcome == "" {
		outcome = entity.OutcomeOngoing
	}
	return RecommendationModel{
		Code:            r.Code,
		Date:            tradedate.Normalize(r.Date),
		Signal:          string(r.Signal),
		Confidence:      r.Confidence,
		Score:           r.Score.Total,
		TechnicalScore:  r.Score.Technical,
		MomentumScore:   r.Score.Momentum,
		VolatilityScore: r.Score.Volatility,
		TrendScore:      r.Score.Trend,
		VolumeScore:     r.Score.Volume,
		Category:        string(r.Score.Category),
		CurrentPrice:    r.CurrentPrice,
		TargetPrice:     r.TargetPrice,
		StopLoss:        r.StopLoss,
		Risk:            string(r.Risk),
		Reasons:         strings.Join(r.Reasons, reasonSep),
		Outcome:         string(outcome),
		OutcomeDate:     r.OutcomeDate,
		ExpiresOn:       tradedate.Normalize(r.ExpiresOn),
	}
}

func (m RecommendationModel) toEntity() entity.Recommendation {
	var reasons []string
	if m.Reasons != "" {
		reasons = strings.Split(m.Reasons, reasonSep)
	}
	return entity.Recommendation{
		ID:         m.ID,
		Code:       m.Code,
		Date:       tradedate.Normalize(m.Date),
		Signal:     entity.Signal(m.Signal),
		Confidence: m.Confidence,
		Score: entity.Score{
			Total:      m.Score,
			Technical:  m.TechnicalScore,
			Momentum:   m.MomentumScore,
			Volatility: m.VolatilityScore,
			Trend:      m.TrendScore,
			Volume:     m.VolumeScore,
			Category:   entity.ScoreCategory(m.Category),
		},
		CurrentPrice: m.CurrentPrice,
		TargetPrice:  m.TargetPrice,
		StopLoss:     m.StopLoss,
		Risk:         entity.Risk(m.Risk),
		Reasons:      reasons,
		Outcome:      entity.Outcome(m.Outcome),
		OutcomeDate:  m.OutcomeDate,
		ExpiresOn:    tradedate.Normalize(m.ExpiresOn),
	}
}

// recommendationGorm はRecommendationRepositoryインターフェースのgorm実装です。
type recommendationGorm struct {
	db *gorm.DB
}

var _ usecase.RecommendationRepository = (*recommendationGorm)(nil)

// NewRecommendationRepository は指定されたDB接続でrecommendationGormリポジトリの新しいインスタンスを生成します。
func NewRecommendationRepository(db *gorm.DB) *recommendationGorm {
	return &recommendationGorm{db: db}
}

// Upsert は (code, date) をキーに1トランザクションで書き込み、保存後の行を返します。
func (r *recommendationGorm) Upsert(ctx context.Context, recs []entity.Recommendation) ([]entity.Recommendation, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	models := make([]RecommendationModel, len(recs))
	for i, rec := range recs {
		models[i] = fromEntity(rec)
	}

	var out []entity.Recommendation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(&models).Error; err != nil {
			return err
		}

		// IDs are not reliable after ON CONFLICT UPDATE on every driver; read the rows back.
		type key struct {
			code string
			date time.Time
		}
		want := make(map[key]bool, len(models))
		codes := make([]string, 0, len(models))
		var dates []time.Time
		seenDate := map[time.Time]bool{}
		for _, m := range models {
			want[key{m.Code, m.Date}] = true
			codes = append(codes, m.Code)
			if !seenDate[m.Date] {
				seenDate[m.Date] = true
				dates = append(dates, m.Date)
			}
		}
		var rows []RecommendationModel
		if err := tx.Where("code IN ? AND date IN ?", codes, dates).Find(&rows).Error; err != nil {
			return fmt.Errorf("reload recommendations: %w", err)
		}
		for _, m := range rows {
			if want[key{m.Code, tradedate.Normalize(m.Date)}] {
				out = append(out, m.toEntity())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Top は最新日の推奨をスコア・信頼度・コード順で返します。
func (r *recommendationGorm) Top(ctx context.Context, signals []entity.Signal, limit int) ([]entity.Recommendation, error) {
	var latest RecommendationModel
	tx := r.db.WithContext(ctx).Order("date DESC").Limit(1).Find(&latest)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).Where("date = ?", latest.Date)
	if len(signals) > 0 {
		names := make([]string, len(signals))
		for i, s := range signals {
			names[i] = string(s)
		}
		q = q.Where("signal IN ?", names)
	}
	var rows []RecommendationModel
	if err := q.Order("score DESC").Order("confidence DESC").Order("code ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Recommendation, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

// Ongoing は結果が確定していない推奨を日付順に返します。
func (r *recommendationGorm) Ongoing(ctx context.Context) ([]entity.Recommendation, error) {
	var rows []RecommendationModel
	if err := r.db.WithContext(ctx).
		Where("outcome = ?", string(entity.OutcomeOngoing)).
		Order("date ASC").Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Recommendation, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

// SetOutcome は推奨の結果と確定日を記録します。
func (r *recommendationGorm) SetOutcome(ctx context.Context, id uint, outcome entity.Outcome, at time.Time) error {
	at = tradedate.Normalize(at)
	return r.db.WithContext(ctx).
		Model(&RecommendationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"outcome": string(outcome), "outcome_date": at}).Error
}
