// Package adapters はpricesフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ngx_pipeline/internal/feature/prices/domain"
	"ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/feature/prices/usecase"
	"ngx_pipeline/internal/platform/db"
	"ngx_pipeline/internal/shared/tradedate"
)

// insertChunk bounds the rows per INSERT statement inside one batch transaction.
const insertChunk = 500

type priceGorm struct {
	db    *gorm.DB
	chunk int
	check func(entity.PriceObservation) error
}

var _ usecase.PriceRepository = (*priceGorm)(nil)

// NewPriceRepository は指定されたDB接続で株価リポジトリを生成します。
func NewPriceRepository(db *gorm.DB) *priceGorm {
	return &priceGorm{db: db, chunk: insertChunk, check: checkObservation}
}

type PriceObservationModel struct {
	ID        uint                `gorm:"primaryKey"`
	Code      string              `gorm:"size:20;not null;uniqueIndex:price_code_date,priority:1"`
	Date      time.Time           `gorm:"not null;uniqueIndex:price_code_date,priority:2;index"`
	Close     decimal.Decimal     `gorm:"type:numeric(18,4);not null;check:chk_price_observations_close,close > 0"`
	DailyPct  decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	YTDPct    decimal.NullDecimal `gorm:"column:ytd_pct;type:numeric(12,4)"`
	MarketCap string              `gorm:"size:32"`
	Source    string              `gorm:"size:32;not null"`
	Quality   string              `gorm:"size:16;not null"`
	Complete  bool                `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PriceObservationModel) TableName() string {
	return "price_observations"
}

// mutableColumns は ON CONFLICT 時に上書きされる列です。
// created_at と updated_at は含まないため、同じ観測値の再登録で行は変化しません。
var mutableColumns = []string{"close", "daily_pct", "ytd_pct", "market_cap", "source", "quality", "complete"}

func toModel(e entity.PriceObservation) PriceObservationModel {
	return PriceObservationModel{
		Code:      e.Code,
		Date:      tradedate.Normalize(e.Date),
		Close:     e.Close,
		DailyPct:  e.DailyPct,
		YTDPct:    e.YTDPct,
		MarketCap: e.MarketCap,
		Source:    e.Source,
		Quality:   string(e.Quality),
		Complete:  e.Complete,
	}
}

func toEntity(m PriceObservationModel) entity.PriceObservation {
	return entity.PriceObservation{
		Code:      m.Code,
		Date:      tradedate.Normalize(m.Date),
		Close:     m.Close,
		DailyPct:  m.DailyPct,
		YTDPct:    m.YTDPct,
		MarketCap: m.MarketCap,
		Source:    m.Source,
		Quality:   entity.QualityTier(m.Quality),
		Complete:  m.Complete,
		UpdatedAt: m.UpdatedAt,
	}
}

func checkObservation(o entity.PriceObservation) error {
	switch {
	case o.Code == "":
		return fmt.Errorf("%w: empty code", domain.ErrInvalidObservation)
	case !o.Close.IsPositive():
		return fmt.Errorf("%w: %s close %s is not positive", domain.ErrInvalidObservation, o.Code, o.Close.String())
	case o.Quality == entity.QualityPoor:
		return fmt.Errorf("%w: %s has quality POOR", domain.ErrInvalidObservation, o.Code)
	}
	return nil
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}
}

// Upsert は1件の株価を (code, date) をキーに登録または上書きします。
func (r *priceGorm) Upsert(ctx context.Context, obs entity.PriceObservation) error {
	if err := r.check(obs); err != nil {
		return err
	}
	m := toModel(obs)
	return r.db.WithContext(ctx).Clauses(upsertClause()).Create(&m).Error
}

// BulkUpsert は batchSize 件ごとにトランザクションを分けて登録します。
// バッチ内に不正なレコードや文の失敗があればそのバッチ全体をロールバックし、次のバッチへ進みます。
func (r *priceGorm) BulkUpsert(ctx context.Context, obs []entity.PriceObservation, batchSize int) entity.BulkUpsertResult {
	if batchSize <= 0 {
		batchSize = usecase.DefaultBatchSize
	}

	var res entity.BulkUpsertResult
	for idx, start := 0, 0; start < len(obs); idx, start = idx+1, start+batchSize {
		end := start + batchSize
		if end > len(obs) {
			end = len(obs)
		}
		batch := obs[start:end]

		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ms := make([]PriceObservationModel, 0, len(batch))
			for i, o := range batch {
				if err := r.check(o); err != nil {
					return fmt.Errorf("record %d: %w", start+i, err)
				}
				ms = append(ms, toModel(o))
			}
			return tx.Clauses(upsertClause()).CreateInBatches(&ms, r.chunk).Error
		})
		if err != nil {
			if db.IsConstraintViolation(err) {
				err = fmt.Errorf("constraint violation: %w", err)
			}
			res.Failed = append(res.Failed, entity.BatchFailure{Index: idx, Start: start, End: end, Err: err})
			continue
		}
		res.Loaded += len(batch)
	}
	return res
}

// History は end 以前の直近 n 件を日付昇順で返します。件数が不足していてもエラーにはなりません。
func (r *priceGorm) History(ctx context.Context, code string, end time.Time, n int) ([]entity.PriceObservation, error) {
	var rows []PriceObservationModel
	q := r.db.WithContext(ctx).
		Where("code = ? AND date <= ?", code, tradedate.Normalize(end)).
		Order("date DESC")
	if n > 0 {
		q = q.Limit(n)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.PriceObservation, len(rows))
	for i, m := range rows {
		out[len(rows)-1-i] = toEntity(m)
	}
	return out, nil
}

// Latest は銘柄ごとに最新日付の株価を銘柄コード順で返します。
func (r *priceGorm) Latest(ctx context.Context) ([]entity.PriceObservation, error) {
	conn := r.db.WithContext(ctx)
	sub := conn.Model(&PriceObservationModel{}).
		Select("code, MAX(date) AS max_date").
		Group("code")

	var rows []PriceObservationModel
	if err := conn.Table("price_observations AS p").
		Select("p.*").
		Joins("JOIN (?) AS m ON p.code = m.code AND p.date = m.max_date", sub).
		Order("p.code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.PriceObservation, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

// LatestByCode は指定銘柄の最新の株価を返します。存在しない場合は domain.ErrNotFound を返します。
func (r *priceGorm) LatestByCode(ctx context.Context, code string) (entity.PriceObservation, error) {
	var m PriceObservationModel
	err := r.db.WithContext(ctx).Where("code = ?", code).Order("date DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.PriceObservation{}, fmt.Errorf("%s: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return entity.PriceObservation{}, err
	}
	return toEntity(m), nil
}

// PriorCloses は各銘柄について before より前の最後の終値を返します。
func (r *priceGorm) PriorCloses(ctx context.Context, codes []string, before time.Time) (map[string]decimal.Decimal, error) {
	if len(codes) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	return r.latestCloses(ctx, "code IN ? AND date < ?", codes, tradedate.Normalize(before))
}

// ClosesAsOf は銘柄ごとに date 以前で最も新しい終値を返します。date より後の観測は含みません。
func (r *priceGorm) ClosesAsOf(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	return r.latestCloses(ctx, "date <= ?", tradedate.Normalize(date))
}

// latestCloses は条件に合う行のうち銘柄ごとに最新日の終値を返します。
func (r *priceGorm) latestCloses(ctx context.Context, where string, args ...any) (map[string]decimal.Decimal, error) {
	conn := r.db.WithContext(ctx)
	sub := conn.Model(&PriceObservationModel{}).
		Select("code, MAX(date) AS max_date").
		Where(where, args...).
		Group("code")

	var rows []PriceObservationModel
	if err := conn.Table("price_observations AS p").
		Select("p.code, p.close").
		Joins("JOIN (?) AS m ON p.code = m.code AND p.date = m.max_date", sub).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(rows))
	for _, m := range rows {
		out[m.Code] = m.Close
	}
	return out, nil
}
