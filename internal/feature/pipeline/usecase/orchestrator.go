// Package usecase は日次ETLの各ステージを順に実行し、実行結果をまとめます。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	alertentity "ngx_pipeline/internal/feature/alerts/domain/entity"
	indusecase "ngx_pipeline/internal/feature/indicators/usecase"
	instentity "ngx_pipeline/internal/feature/instruments/domain/entity"
	"ngx_pipeline/internal/feature/pipeline/domain"
	"ngx_pipeline/internal/feature/pipeline/domain/entity"
	priceentity "ngx_pipeline/internal/feature/prices/domain/entity"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/tradedate"
)

// ErrFatal marks a failure that aborts the remaining stages, such as an unreachable store.
var ErrFatal = errors.New("fatal pipeline error")

// errSkip is returned by a stage that had no input to work on.
var errSkip = errors.New("no input")

// Deps はオーケストレーターの協調オブジェクトです。Runs、Lock、Metrics は省略できます。
type Deps struct {
	Fetcher         Fetcher
	Pinger          Pinger
	Prices          PriceStore
	Instruments     InstrumentService
	Indicators      IndicatorService
	Alerts          AlertService
	Recommendations RecommendationService
	Runs            RunRepository
	Lock            Locker
	Metrics         Metrics
	Log             *logger.Logger
}

// Orchestrator は1日分のパイプラインを実行します。
type Orchestrator struct {
	cfg     Config
	deps    Deps
	now     func() time.Time
	running atomic.Bool
}

// NewOrchestrator は設定と協調オブジェクトから Orchestrator を生成します。
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.HistoryDepth <= 0 {
		cfg.HistoryDepth = indusecase.DefaultDepth
	}
	if cfg.MaxReportedIssues <= 0 {
		cfg.MaxReportedIssues = DefaultMaxReportedIssues
	}
	if cfg.Source == "" {
		cfg.Source = "ngx"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Orchestrator{cfg: cfg, deps: deps, now: time.Now}
}

// runState carries stage outputs forward within one run.
type runState struct {
	asOf         time.Time
	raw          []priceentity.RawRecord
	quotes       []priceentity.Quote
	observations []priceentity.PriceObservation
	instruments  []instentity.Instrument

	mu         sync.Mutex
	indicators map[string]indusecase.Result
	alerts     []alertentity.Alert
}

type stageFunc func(ctx context.Context, st *runState, rec *recorder) error

type stage struct {
	name string
	run  stageFunc
}

func (o *Orchestrator) stages() []stage {
	return []stage{
		{entity.StageFetch, o.fetch},
		{entity.StageValidate, o.validate},
		{entity.StageTransform, o.transform},
		{entity.StageLoadInstruments, o.loadInstruments},
		{entity.StageLoadPrices, o.loadPrices},
		{entity.StageComputeIndicators, o.computeIndicators},
		{entity.StageEvaluateAlerts, o.evaluateAlerts},
		{entity.StageGenerateRecommendations, o.generateRecommendations},
		{entity.StageNotify, o.notify},
	}
}

// Trigger は他の実行が進行中でなければ Run を実行します。進行中なら domain.ErrRunInProgress を返します。
// Lock が設定されている場合は別プロセスの実行も進行中とみなします。
func (o *Orchestrator) Trigger(ctx context.Context, asOf time.Time) (entity.RunResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return entity.RunResult{}, domain.ErrRunInProgress
	}
	defer o.running.Store(false)

	if o.deps.Lock != nil {
		release, acquired, err := o.deps.Lock.TryAcquire(ctx, RunLockName, o.cfg.LockTTL)
		if err != nil {
			return entity.RunResult{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			return entity.RunResult{}, domain.ErrRunInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				o.deps.Log.Warn("failed to release run lock", logger.Error(err))
			}
		}()
	}
	return o.Run(ctx, asOf), nil
}

// LatestRun は最後に保存された実行結果を返します。
func (o *Orchestrator) LatestRun(ctx context.Context) (entity.RunResult, error) {
	if o.deps.Runs == nil {
		return entity.RunResult{}, domain.ErrNotFound
	}
	return o.deps.Runs.Latest(ctx)
}

// Run は asOf の取引日についてすべてのステージを順に実行します。
// ストアへの事前疎通に失敗した場合や ErrFatal を伴う失敗、キャンセルでは残りのステージを実行せず FAILED になります。
// ステージ内のエラーは結果に記録され、実行自体は PARTIAL として最後まで進みます。
func (o *Orchestrator) Run(ctx context.Context, asOf time.Time) entity.RunResult {
	started := o.now()
	res := entity.RunResult{
		RunID:     uuid.NewString(),
		AsOf:      tradedate.Normalize(asOf),
		StartedAt: started.UTC(),
		Counts:    map[string]int{},
	}
	log := o.deps.Log.With(logger.String("run_id", res.RunID), logger.String("as_of", tradedate.Format(res.AsOf)))
	log.Info("pipeline run started")

	var errs, warns []string
	fatal := false
	if err := o.deps.Pinger.Ping(ctx); err != nil {
		fatal = true
		errs = append(errs, fmt.Errorf("%w: preflight: %w", ErrFatal, err).Error())
		log.Error("preflight failed", logger.Error(err))
	}

	st := &runState{asOf: res.AsOf, indicators: map[string]indusecase.Result{}}
	for _, s := range o.stages() {
		if fatal {
			res.Stages = append(res.Stages, entity.StageReport{Name: s.name, Status: entity.StageSkipped})
			continue
		}
		if !o.cfg.enabled(s.name) {
			res.Stages = append(res.Stages, entity.StageReport{Name: s.name, Status: entity.StageDisabled})
			continue
		}
		if err := ctx.Err(); err != nil {
			fatal = true
			errs = append(errs, fmt.Sprintf("run cancelled before %s: %v", s.name, err))
			res.Stages = append(res.Stages, entity.StageReport{Name: s.name, Status: entity.StageSkipped})
			continue
		}

		rep, rec, stageFatal := o.runStage(ctx, s, st)
		res.Stages = append(res.Stages, rep)
		for k, n := range rep.Counts {
			res.Counts[k] += n
			o.deps.Metrics.RecordRows(s.name, k, n)
		}
		o.deps.Metrics.RecordStage(s.name, rep.Duration, len(rep.Errors))
		for _, e := range rep.Errors {
			errs = append(errs, s.name+": "+e)
		}
		for _, w := range rec.warnings {
			warns = append(warns, s.name+": "+w)
		}
		log.Info("stage finished",
			logger.String("stage", s.name),
			logger.String("status", string(rep.Status)),
			logger.Duration("duration", rep.Duration),
			logger.Int("errors", len(rep.Errors)))
		if stageFatal {
			fatal = true
		}
	}

	switch {
	case fatal:
		res.Status = entity.StatusFailed
	case len(errs) > 0:
		res.Status = entity.StatusPartial
	default:
		res.Status = entity.StatusSuccess
	}
	res.Duration = o.now().Sub(started)
	res.Errors = capIssues(errs, o.cfg.MaxReportedIssues)
	res.Warnings = capIssues(warns, o.cfg.MaxReportedIssues)
	o.deps.Metrics.RecordRun(string(res.Status))

	if o.deps.Runs != nil {
		if err := o.deps.Runs.Save(context.WithoutCancel(ctx), res); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("save run: %v", err))
			log.Warn("failed to save run", logger.Error(err))
		}
	}

	log.Info("pipeline run finished",
		logger.String("status", string(res.Status)),
		logger.Duration("duration", res.Duration),
		logger.Int("errors", len(errs)),
		logger.Int("warnings", len(warns)),
		logger.Int("loaded", res.Counts["loaded"]),
		logger.Int("alerts", res.Counts["alerts"]),
		logger.Int("recommendations", res.Counts["recommendations"]))
	return res
}

// runStage runs one stage with panic recovery. A stage that records errors is followed by
// a store ping so a lost connection aborts the run instead of failing every later stage.
func (o *Orchestrator) runStage(ctx context.Context, s stage, st *runState) (entity.StageReport, *recorder, bool) {
	rec := newRecorder()
	start := o.now()
	err := protect(func() error { return s.run(ctx, st, rec) })
	if err != nil && !errors.Is(err, errSkip) {
		rec.fail(err)
	}

	fatal := errors.Is(err, ErrFatal)
	if !fatal && rec.failed() && ctx.Err() == nil {
		if perr := o.deps.Pinger.Ping(ctx); perr != nil {
			rec.fail(fmt.Errorf("%w: store unreachable after %s: %w", ErrFatal, s.name, perr))
			fatal = true
		}
	}

	rep := entity.StageReport{
		Name:     s.name,
		Duration: o.now().Sub(start),
		Counts:   rec.counts,
		Errors:   rec.errors,
	}
	switch {
	case len(rec.errors) > 0:
		rep.Status = entity.StageFailed
	case errors.Is(err, errSkip):
		rep.Status = entity.StageSkipped
	default:
		rep.Status = entity.StageOK
	}
	return rep, rec, fatal
}

// forEach runs fn for every code on a bounded pool. A failure is recorded against its
// code and never stops the others.
func (o *Orchestrator) forEach(ctx context.Context, codes []string, rec *recorder, fn func(ctx context.Context, code string) error) {
	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for _, code := range codes {
		g.Go(func() error {
			if err := protect(func() error { return fn(ctx, code) }); err != nil {
				rec.fail(fmt.Errorf("%s: %w", code, err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
