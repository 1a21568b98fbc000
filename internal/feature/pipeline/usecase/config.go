package usecase

import (
	"strings"
	"time"

	"ngx_pipeline/internal/feature/pipeline/domain/entity"
	priceusecase "ngx_pipeline/internal/feature/prices/usecase"
	"ngx_pipeline/internal/platform/config"
)

const (
	// DefaultWorkers is the per-instrument parallelism used when Config.Workers is 0.
	DefaultWorkers = 4
	// DefaultMaxReportedIssues caps RunResult.Errors and RunResult.Warnings when Config leaves it 0.
	DefaultMaxReportedIssues = 50
	// TrailingVolatilityWindow is how many prior snapshots feed the volatility-spike baseline.
	TrailingVolatilityWindow = 30
	// PriorSnapshotWindow is how many prior snapshots feed trend persistence scoring.
	PriorSnapshotWindow = 10
	// DefaultLockTTL bounds how long a crashed holder can block later runs.
	DefaultLockTTL = 15 * time.Minute
	// RunLockName is the shared lock taken by Trigger.
	RunLockName = "run"
)

// Stages toggles each stage of a run.
type Stages struct {
	Fetch                   bool
	Validate                bool
	Transform               bool
	LoadInstruments         bool
	LoadPrices              bool
	ComputeIndicators       bool
	EvaluateAlerts          bool
	GenerateRecommendations bool
	Notify                  bool
}

// AllStages enables every stage.
func AllStages() Stages {
	return Stages{
		Fetch:                   true,
		Validate:                true,
		Transform:               true,
		LoadInstruments:         true,
		LoadPrices:              true,
		ComputeIndicators:       true,
		EvaluateAlerts:          true,
		GenerateRecommendations: true,
		Notify:                  true,
	}
}

// Config はオーケストレーターの実行設定です。
type Config struct {
	Stages       Stages
	BatchSize    int
	Workers      int
	HistoryDepth int
	// Codes restricts the run to these instruments. Empty means every active instrument.
	Codes             []string
	Quality           priceusecase.QualityBounds
	ValidExchanges    []string
	MaxReportedIssues int
	// Source tags persisted observations.
	Source string
	// LockTTL is the lifetime of the cross-process run lock.
	LockTTL time.Duration
}

// ConfigFrom はアプリケーション設定からオーケストレーターの設定を組み立てます。
func ConfigFrom(pc config.PipelineConfig, source string) Config {
	codes := make([]string, 0, len(pc.Codes))
	for _, c := range pc.Codes {
		if c = priceusecase.NormalizeCode(c); c != "" {
			codes = append(codes, c)
		}
	}
	s := pc.Stages
	return Config{
		Stages: Stages{
			Fetch:                   s.Fetch,
			Validate:                s.Validate,
			Transform:               s.Transform,
			LoadInstruments:         s.LoadInstruments,
			LoadPrices:              s.LoadPrices,
			ComputeIndicators:       s.ComputeIndicators,
			EvaluateAlerts:          s.EvaluateAlerts,
			GenerateRecommendations: s.GenerateRecommendations,
			Notify:                  s.Notify,
		},
		BatchSize:    pc.BatchSize,
		Workers:      pc.Workers,
		HistoryDepth: pc.HistoryDepth,
		Codes:        codes,
		Quality: priceusecase.QualityBounds{
			MaxAbsDailyPct:   pc.Quality.MaxAbsDailyPct,
			MaxDayOverDayPct: pc.Quality.MaxDayOverDayPct,
		},
		ValidExchanges:    upper(pc.Quality.ValidExchanges),
		MaxReportedIssues: pc.MaxReportedIssues,
		Source:            source,
		LockTTL:           lockTTL(pc.RunTimeout),
	}
}

func lockTTL(runTimeout time.Duration) time.Duration {
	if runTimeout <= 0 {
		return DefaultLockTTL
	}
	return runTimeout + time.Minute
}

func upper(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Config) enabled(stage string) bool {
	switch stage {
	case entity.StageFetch:
		return c.Stages.Fetch
	case entity.StageValidate:
		return c.Stages.Validate
	case entity.StageTransform:
		return c.Stages.Transform
	case entity.StageLoadInstruments:
		return c.Stages.LoadInstruments
	case entity.StageLoadPrices:
		return c.Stages.LoadPrices
	case entity.StageComputeIndicators:
		return c.Stages.ComputeIndicators
	case entity.StageEvaluateAlerts:
		return c.Stages.EvaluateAlerts
	case entity.StageGenerateRecommendations:
		return c.Stages.GenerateRecommendations
	case entity.StageNotify:
		return c.Stages.Notify
	}
	return false
}
