// Package adapters はindicatorsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ngx_pipeline/internal/feature/indicators/domain/entity"
	"ngx_pipeline/internal/feature/indicators/usecase"
	"ngx_pipeline/internal/shared/tradedate"
)

// IndicatorSnapshotModel は indicator_snapshots テーブルの行です。
type IndicatorSnapshotModel struct {
	ID           uint      `gorm:"primaryKey"`
	Code         string    `gorm:"size:20;not null;uniqueIndex:indicator_code_date,priority:1"`
	Date         time.Time `gorm:"not null;uniqueIndex:indicator_code_date,priority:2"`
	Close        float64   `gorm:"not null"`
	SMA20        *float64  `gorm:"column:sma_20"`
	SMA50        *float64  `gorm:"column:sma_50"`
	RSI14        *float64  `gorm:"column:rsi_14"`
	MACDLine     *float64  `gorm:"column:macd_line"`
	MACDSignal   *float64  `gorm:"column:macd_signal"`
	MACDHist     *float64  `gorm:"column:macd_hist"`
	Volatility30 *float64  `gorm:"column:volatility_30"`
	BBUpper      *float64  `gorm:"column:bb_upper"`
	BBMiddle     *float64  `gorm:"column:bb_middle"`
	BBLower      *float64  `gorm:"column:bb_lower"`
	Cross        string    `gorm:"size:10;not null"`
	Observations int       `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (IndicatorSnapshotModel) TableName() string { return "indicator_snapshots" }

var snapshotColumns = []string{
	"close", "sma_20", "sma_50", "rsi_14", "macd_line", "macd_signal", "macd_hist",
	"volatility_30", "bb_upper", "bb_middle", "bb_lower", "cross", "observations", "updated_at",
}

func fromEntity(s entity.Snapshot) IndicatorSnapshotModel {
	return IndicatorSnapshotModel{
		Code:         s.Code,
		Date:         tradedate.Normalize(s.Date),
		Close:        s.Close,
		SMA20:        s.SMA20,
		SMA50:        s.SMA50,
		RSI14:        s.RSI14,
		MACDLine:     s.MACDLine,
		MACDSignal:   s.MACDSignal,
		MACDHist:     s.MACDHist,
		Volatility30: s.Volatility30,
		BBUpper:      s.BBUpper,
		BBMiddle:     s.BBMiddle,
		BBLower:      s.BBLower,
		Cross:        string(s.Cross),
		Observations: s.Observations,
	}
}

func (m IndicatorSnapshotModel) toEntity() entity.Snapshot {
	return entity.Snapshot{
		Code:         m.Code,
		Date:         tradedate.Normalize(m.Date),
		Close:        m.Close,
		SMA20:        m.SMA20,
		SMA50:        m.SMA50,
		RSI14:        m.RSI14,
		MACDLine:     m.MACDLine,
		MACDSignal:   m.MACDSignal,
		MACDHist:     m.MACDHist,
		Volatility30: m.Volatility30,
		BBUpper:      m.BBUpper,
		BBMiddle:     m.BBMiddle,
		BBLower:      m.BBLower,
		Cross:        entity.Cross(m.Cross),
		Observations: m.Observations,
	}
}

// snapshotGorm はSnapshotRepositoryインターフェースのgorm実装です。
type snapshotGorm struct {
	db *gorm.DB
}

var _ usecase.SnapshotRepository = (*snapshotGorm)(nil)

// NewSnapshotRepository は指定されたDB接続でsnapshotGormリポジトリの新しいインスタンスを生成します。
func NewSnapshotRepository(db *gorm.DB) *snapshotGorm {
	return &snapshotGorm{db: db}
}

// Upsert は (code, date) をキーにスナップショットを登録または上書きします。
func (r *snapshotGorm) Upsert(ctx context.Context, s entity.Snapshot) error {
	m := fromEntity(s)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns(snapshotColumns),
		}).
		Create(&m).Error
}

// Range は期間内のスナップショットを日付の昇順で返します。ゼロ値の境界は無視します。
func (r *snapshotGorm) Range(ctx context.Context, code string, from, to time.Time) ([]entity.Snapshot, error) {
	q := r.db.WithContext(ctx).Where("code = ?", code)
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", to)
	}
	var rows []IndicatorSnapshotModel
	if err := q.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

// Before は date より前の直近 n 件を昇順で返します。
func (r *snapshotGorm) Before(ctx context.Context, code string, date time.Time, n int) ([]entity.Snapshot, error) {
	if n <= 0 {
		return nil, nil
	}
	var rows []IndicatorSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("code = ? AND date < ?", code, date).
		Order("date DESC").
		Limit(n).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toEntities(rows), nil
}

func toEntities(rows []IndicatorSnapshotModel) []entity.Snapshot {
	out := make([]entity.Snapshot, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out
}
