// Package usecase は株価データの変換・品質判定・参照のビジネスロジックを実装します。
package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/shared/tradedate"
)

const (
	// DefaultHistorySize は履歴取得のデフォルト件数です。
	DefaultHistorySize = 100
	// MaxHistorySize は履歴取得の最大件数です。
	MaxHistorySize = 1000
	// DefaultBatchSize は一括登録のデフォルトのバッチサイズです。
	DefaultBatchSize = 50
)

// PriceRepository は株価観測データの永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type PriceRepository interface {
	Upsert(ctx context.Context, obs entity.PriceObservation) error
	// BulkUpsert はバッチ単位でアトミックに登録します。失敗したバッチは結果に記録され、後続のバッチは続行されます。
	BulkUpsert(ctx context.Context, obs []entity.PriceObservation, batchSize int) entity.BulkUpsertResult
	// History は end 以前の直近 n 件を日付昇順で返します。
	History(ctx context.Context, code string, end time.Time, n int) ([]entity.PriceObservation, error)
	Latest(ctx context.Context) ([]entity.PriceObservation, error)
	LatestByCode(ctx context.Context, code string) (entity.PriceObservation, error)
	PriorCloses(ctx context.Context, codes []string, before time.Time) (map[string]decimal.Decimal, error)
	// ClosesAsOf は銘柄ごとに date 以前の最新終値を返します。
	ClosesAsOf(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)
}

// PricesUsecase は株価の参照系ユースケースを提供します。
type PricesUsecase struct {
	repo PriceRepository
	now  func() time.Time
}

// NewPricesUsecase は PricesUsecase の新しいインスタンスを生成します。
func NewPricesUsecase(repo PriceRepository) *PricesUsecase {
	return &PricesUsecase{repo: repo, now: time.Now}
}

// Latest は銘柄ごとの最新の株価を返します。
func (u *PricesUsecase) Latest(ctx context.Context) ([]entity.PriceObservation, error) {
	return u.repo.Latest(ctx)
}

// History は指定銘柄の株価履歴を返します。
// end がゼロ値の場合は本日、n が範囲外の場合は DefaultHistorySize を使用します。
func (u *PricesUsecase) History(ctx context.Context, code string, end time.Time, n int) ([]entity.PriceObservation, error) {
	if end.IsZero() {
		end = tradedate.Today(u.now())
	}
	if n <= 0 || n > MaxHistorySize {
		n = DefaultHistorySize
	}
	return u.repo.History(ctx, NormalizeCode(code), tradedate.Normalize(end), n)
}

// LatestByCode は指定銘柄の最新の株価を返します。
func (u *PricesUsecase) LatestByCode(ctx context.Context, code string) (entity.PriceObservation, error) {
	return u.repo.LatestByCode(ctx, NormalizeCode(code))
}
