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

// 未設定の関数フィールドはゼロ値を返します。

type mockFetcher struct {
	FetchFunc func(ctx context.Context, asOf time.Time) ([]priceentity.RawRecord, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, asOf time.Time) ([]priceentity.RawRecord, error) {
	if m.FetchFunc == nil {
		return nil, nil
	}
	return m.FetchFunc(ctx, asOf)
}

type mockPinger struct {
	PingFunc func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.PingFunc == nil {
		return nil
	}
	return m.PingFunc(ctx)
}

type mockPrices struct {
	BulkUpsertFunc  func(ctx context.Context, obs []priceentity.PriceObservation, batchSize int) priceentity.BulkUpsertResult
	PriorClosesFunc func(ctx context.Context, codes []string, before time.Time) (map[string]decimal.Decimal, error)
	ClosesAsOfFunc  func(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)
}

func (m *mockPrices) BulkUpsert(ctx context.Context, obs []priceentity.PriceObservation, batchSize int) priceentity.BulkUpsertResult {
	if m.BulkUpsertFunc == nil {
		return priceentity.BulkUpsertResult{Loaded: len(obs)}
	}
	return m.BulkUpsertFunc(ctx, obs, batchSize)
}

func (m *mockPrices) PriorCloses(ctx context.Context, codes []string, before time.Time) (map[string]decimal.Decimal, error) {
	if m.PriorClosesFunc == nil {
		return nil, nil
	}
	return m.PriorClosesFunc(ctx, codes, before)
}

func (m *mockPrices) ClosesAsOf(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	if m.ClosesAsOfFunc == nil {
		return nil, nil
	}
	return m.ClosesAsOfFunc(ctx, date)
}

type mockInstruments struct {
	SyncFunc         func(ctx context.Context, instruments []instentity.Instrument) (instentity.SyncResult, error)
	ActiveCodesFunc  func(ctx context.Context) ([]string, error)
	KnownSectorsFunc func(ctx context.Context) ([]string, error)
}

func (m *mockInstruments) Sync(ctx context.Context, instruments []instentity.Instrument) (instentity.SyncResult, error) {
	if m.SyncFunc == nil {
		return instentity.SyncResult{Created: len(instruments)}, nil
	}
	return m.SyncFunc(ctx, instruments)
}

func (m *mockInstruments) ActiveCodes(ctx context.Context) ([]string, error) {
	if m.ActiveCodesFunc == nil {
		return nil, nil
	}
	return m.ActiveCodesFunc(ctx)
}

func (m *mockInstruments) KnownSectors(ctx context.Context) ([]string, error) {
	if m.KnownSectorsFunc == nil {
		return nil, nil
	}
	return m.KnownSectorsFunc(ctx)
}

type mockIndicators struct {
	ComputeForFunc         func(ctx context.Context, code string, asOf time.Time, depth int) (indusecase.Result, error)
	RecentFunc             func(ctx context.Context, code string, date time.Time, n int) ([]indentity.Snapshot, error)
	TrailingVolatilityFunc func(ctx context.Context, code string, before time.Time, n int) (*float64, error)
}

func (m *mockIndicators) ComputeFor(ctx context.Context, code string, asOf time.Time, depth int) (indusecase.Result, error) {
	if m.ComputeForFunc == nil {
		return indusecase.Result{}, nil
	}
	return m.ComputeForFunc(ctx, code, asOf, depth)
}

func (m *mockIndicators) Recent(ctx context.Context, code string, date time.Time, n int) ([]indentity.Snapshot, error) {
	if m.RecentFunc == nil {
		return nil, nil
	}
	return m.RecentFunc(ctx, code, date, n)
}

func (m *mockIndicators) TrailingVolatility(ctx context.Context, code string, before time.Time, n int) (*float64, error) {
	if m.TrailingVolatilityFunc == nil {
		return nil, nil
	}
	return m.TrailingVolatilityFunc(ctx, code, before, n)
}

type mockAlerts struct {
	LoadRulesFunc          func(ctx context.Context) ([]alertentity.Rule, error)
	EvaluateInstrumentFunc func(ctx context.Context, in alertusecase.Input, rules []alertentity.Rule) ([]alertentity.Alert, error)
	NotifyFunc             func(ctx context.Context, alerts []alertentity.Alert, date time.Time) alertusecase.NotifyResult
}

func (m *mockAlerts) LoadRules(ctx context.Context) ([]alertentity.Rule, error) {
	if m.LoadRulesFunc == nil {
		return alertentity.DefaultRules(), nil
	}
	return m.LoadRulesFunc(ctx)
}

func (m *mockAlerts) EvaluateInstrument(ctx context.Context, in alertusecase.Input, rules []alertentity.Rule) ([]alertentity.Alert, error) {
	if m.EvaluateInstrumentFunc == nil {
		return nil, nil
	}
	return m.EvaluateInstrumentFunc(ctx, in, rules)
}

func (m *mockAlerts) Notify(ctx context.Context, alerts []alertentity.Alert, date time.Time) alertusecase.NotifyResult {
	if m.NotifyFunc == nil {
		return alertusecase.NotifyResult{}
	}
	return m.NotifyFunc(ctx, alerts, date)
}

type mockRecommendations struct {
	GenerateFunc          func(ctx context.Context, date time.Time, candidates []recusecase.Candidate) (recusecase.GenerateResult, error)
	ReconcileOutcomesFunc func(ctx context.Context, asOf time.Time, latest map[string]decimal.Decimal) (recusecase.ReconcileResult, error)
}

func (m *mockRecommendations) Generate(ctx context.Context, date time.Time, candidates []recusecase.Candidate) (recusecase.GenerateResult, error) {
	if m.GenerateFunc == nil {
		return recusecase.GenerateResult{}, nil
	}
	return m.GenerateFunc(ctx, date, candidates)
}

func (m *mockRecommendations) ReconcileOutcomes(ctx context.Context, asOf time.Time, latest map[string]decimal.Decimal) (recusecase.ReconcileResult, error) {
	if m.ReconcileOutcomesFunc == nil {
		return recusecase.ReconcileResult{}, nil
	}
	return m.ReconcileOutcomesFunc(ctx, asOf, latest)
}

type mockRuns struct {
	SaveFunc   func(ctx context.Context, r entity.RunResult) error
	LatestFunc func(ctx context.Context) (entity.RunResult, error)
}

func (m *mockRuns) Save(ctx context.Context, r entity.RunResult) error {
	if m.SaveFunc == nil {
		return nil
	}
	return m.SaveFunc(ctx, r)
}

func (m *mockRuns) Latest(ctx context.Context) (entity.RunResult, error) {
	if m.LatestFunc == nil {
		return entity.RunResult{}, nil
	}
	return m.LatestFunc(ctx)
}

type mockLocker struct {
	TryAcquireFunc func(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error)
}

func (m *mockLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	return m.TryAcquireFunc(ctx, name, ttl)
}
