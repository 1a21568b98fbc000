package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	alertadapters "ngx_pipeline/internal/feature/alerts/adapters"
	"ngx_pipeline/internal/feature/alerts/adapters/notify"
	alertusecase "ngx_pipeline/internal/feature/alerts/usecase"
	indadapters "ngx_pipeline/internal/feature/indicators/adapters"
	indusecase "ngx_pipeline/internal/feature/indicators/usecase"
	instadapters "ngx_pipeline/internal/feature/instruments/adapters"
	instusecase "ngx_pipeline/internal/feature/instruments/usecase"
	pipeadapters "ngx_pipeline/internal/feature/pipeline/adapters"
	pipeusecase "ngx_pipeline/internal/feature/pipeline/usecase"
	priceadapters "ngx_pipeline/internal/feature/prices/adapters"
	"ngx_pipeline/internal/feature/prices/adapters/ngx"
	priceusecase "ngx_pipeline/internal/feature/prices/usecase"
	recadapters "ngx_pipeline/internal/feature/recommendations/adapters"
	recusecase "ngx_pipeline/internal/feature/recommendations/usecase"
	"ngx_pipeline/internal/platform/cache"
	"ngx_pipeline/internal/platform/config"
	"ngx_pipeline/internal/platform/db"
	infrahttp "ngx_pipeline/internal/platform/http"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/platform/metrics"
	infraredis "ngx_pipeline/internal/platform/redis"
	"ngx_pipeline/internal/shared/tradedate"
)

// Models lists every table migrated at startup.
func Models() []interface{} {
	return []interface{}{
		&instadapters.InstrumentModel{},
		&priceadapters.PriceObservationModel{},
		&indadapters.IndicatorSnapshotModel{},
		&alertadapters.AlertRuleModel{},
		&alertadapters.AlertEventModel{},
		&recadapters.RecommendationModel{},
		&pipeadapters.PipelineRunModel{},
	}
}

// App holds the wired components shared by the server, the CLI and the scheduler.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	DB      *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.Recorder
	Pinger  *db.Pinger

	Prices          *priceusecase.PricesUsecase
	Instruments     *instusecase.InstrumentsUsecase
	Indicators      *indusecase.IndicatorsUsecase
	Alerts          *alertusecase.AlertsUsecase
	Recommendations *recusecase.RecommendationsUsecase
	Orchestrator    *pipeusecase.Orchestrator

	notifier *notify.Multi
}

// Build opens the store and Redis and wires every usecase. reg receives the Prometheus
// collectors; nil uses the default registerer.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) (*App, error) {
	gdb, err := db.Open(cfg.Database, log, Models()...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rdb, err := infraredis.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		// Redis is optional: reads go straight to the store and notifications skip the channel.
		log.Warn("redis unavailable, running without cache", logger.Error(err))
		rdb = nil
	}

	// Repository
	priceRepo := newPriceRepository(cfg, gdb, rdb, log)
	instrumentRepo := instadapters.NewInstrumentRepository(gdb)
	snapshotRepo := indadapters.NewSnapshotRepository(gdb)
	ruleRepo := alertadapters.NewRuleRepository(gdb)
	alertRepo := alertadapters.NewAlertRepository(gdb)
	recRepo := recadapters.NewRecommendationRepository(gdb)
	runRepo := pipeadapters.NewRunRepository(gdb)

	// Notifier
	notifier := notify.FromConfig(cfg.Notify, rdb, infrahttp.NewHTTPClient(cfg.Source.Timeout, cfg.Source.UserAgent), log)

	// Usecase
	a := &App{
		Config:          cfg,
		Log:             log,
		DB:              gdb,
		Redis:           rdb,
		Metrics:         metrics.New(reg),
		Pinger:          db.NewPinger(gdb),
		Prices:          priceusecase.NewPricesUsecase(priceRepo),
		Instruments:     instusecase.NewInstrumentsUsecase(instrumentRepo, log),
		Indicators:      indusecase.NewIndicatorsUsecase(priceRepo, snapshotRepo, log),
		Alerts:          alertusecase.NewAlertsUsecase(ruleRepo, alertRepo, notifier, log),
		Recommendations: recusecase.NewRecommendationsUsecase(recRepo, advisorConfig(cfg.Pipeline.Advisor), log),
		notifier:        notifier,
	}

	if n, err := a.Alerts.SeedDefaultRules(ctx); err != nil {
		log.Warn("failed to seed default alert rules", logger.Error(err))
	} else if n > 0 {
		log.Info("seeded default alert rules", logger.Int("count", n))
	}

	a.Orchestrator = pipeusecase.NewOrchestrator(
		pipeusecase.ConfigFrom(cfg.Pipeline, ngx.SourceTag),
		pipeusecase.Deps{
			Fetcher:         NewFetcher(cfg.Source, log),
			Pinger:          a.Pinger,
			Prices:          priceRepo,
			Instruments:     a.Instruments,
			Indicators:      a.Indicators,
			Alerts:          a.Alerts,
			Recommendations: a.Recommendations,
			Runs:            runRepo,
			Lock:            NewRunLocker(rdb),
			Metrics:         a.Metrics,
			Log:             log,
		},
	)
	return a, nil
}

// newPriceRepository wraps the gorm store in the Redis read cache, capping entries at the next scheduled load.
func newPriceRepository(cfg *config.Config, gdb *gorm.DB, rdb *redis.Client, log *logger.Logger) priceusecase.PriceRepository {
	repo := cache.NewCachingPriceRepository(rdb, cfg.Redis.CacheTTL, priceadapters.NewPriceRepository(gdb), "ngx:prices")
	sched, err := cron.ParseStandard(cfg.Schedule.Cron)
	if err != nil {
		log.Warn("schedule not parseable, cache TTL left uncapped", logger.Error(err))
		return repo
	}
	loc := tradedate.Lagos
	if l, err := time.LoadLocation(cfg.Schedule.Timezone); err == nil {
		loc = l
	}
	next := sched.Next(time.Now().In(loc))
	return repo.WithDailyRefresh(loc, next.Hour(), next.Minute())
}

func advisorConfig(c config.AdvisorConfig) recusecase.AdvisorConfig {
	return recusecase.AdvisorConfig{
		MinScore:      c.MinScore,
		MinConfidence: c.MinConfidence,
		HorizonDays:   c.HorizonDays,
	}
}

// Close releases the notifier, Redis and database connections.
func (a *App) Close() error {
	var errs []error
	if a.notifier != nil {
		errs = append(errs, a.notifier.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
