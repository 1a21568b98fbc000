package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	alertentity "ngx_pipeline/internal/feature/alerts/domain/entity"
	alertusecase "ngx_pipeline/internal/feature/alerts/usecase"
	indentity "ngx_pipeline/internal/feature/indicators/domain/entity"
	indusecase "ngx_pipeline/internal/feature/indicators/usecase"
	instentity "ngx_pipeline/internal/feature/instruments/domain/entity"
	"ngx_pipeline/internal/feature/pipeline/domain/entity"
	priceentity "ngx_pipeline/internal/feature/prices/domain/entity"
	recusecase "ngx_pipeline/internal/feature/recommendations/usecase"
)

// Fetcher は取引所から当日の生レコードを取得します。
// 再試行可能なエラーは retry.ErrTransient を、不可能なエラーは ErrFatalSource をラップします。
type Fetcher interface {
	Fetch(ctx context.Context, asOf time.Time) ([]priceentity.RawRecord, error)
}

// Pinger は永続化層への到達性を確認します。
type Pinger interface {
	Ping(ctx context.Context) error
}

// PriceStore はパイプラインが使う株価ストアの操作です。
type PriceStore interface {
	BulkUpsert(ctx context.Context, obs []priceentity.PriceObservation, batchSize int) priceentity.BulkUpsertResult
	PriorCloses(ctx context.Context, codes []string, before time.Time) (map[string]decimal.Decimal, error)
	ClosesAsOf(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)
}

// InstrumentService は銘柄マスタの操作です。
type InstrumentService interface {
	Sync(ctx context.Context, instruments []instentity.Instrument) (instentity.SyncResult, error)
	ActiveCodes(ctx context.Context) ([]string, error)
	KnownSectors(ctx context.Context) ([]string, error)
}

// IndicatorService は指標の計算と過去スナップショットの参照です。
type IndicatorService interface {
	ComputeFor(ctx context.Context, code string, asOf time.Time, depth int) (indusecase.Result, error)
	Recent(ctx context.Context, code string, date time.Time, n int) ([]indentity.Snapshot, error)
	TrailingVolatility(ctx context.Context, code string, before time.Time, n int) (*float64, error)
}

// AlertService はルールの読み込み、評価、通知です。
type AlertService interface {
	LoadRules(ctx context.Context) ([]alertentity.Rule, error)
	EvaluateInstrument(ctx context.Context, in alertusecase.Input, rules []alertentity.Rule) ([]alertentity.Alert, error)
	Notify(ctx context.Context, alerts []alertentity.Alert, date time.Time) alertusecase.NotifyResult
}

// RecommendationService は推奨の生成と結果の照合です。
type RecommendationService interface {
	Generate(ctx context.Context, date time.Time, candidates []recusecase.Candidate) (recusecase.GenerateResult, error)
	ReconcileOutcomes(ctx context.Context, asOf time.Time, latest map[string]decimal.Decimal) (recusecase.ReconcileResult, error)
}

// RunRepository は実行結果の永続化層を抽象化します。
type RunRepository interface {
	Save(ctx context.Context, r entity.RunResult) error
	Latest(ctx context.Context) (entity.RunResult, error)
}

// Locker はプロセスをまたいだ実行の排他を提供します。
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// Metrics は実行とステージの計測を受け取ります。
type Metrics interface {
	RecordRun(status string)
	RecordStage(stage string, d time.Duration, errs int)
	RecordRows(stage, kind string, n int)
}

type nopMetrics struct{}

func (nopMetrics) RecordRun(string)                       {}
func (nopMetrics) RecordStage(string, time.Duration, int) {}
func (nopMetrics) RecordRows(string, string, int)         {}
