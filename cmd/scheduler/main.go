// Command scheduler triggers the daily pipeline on the configured cron schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"ngx_pipeline/internal/app/di"
	"ngx_pipeline/internal/feature/pipeline/domain"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/tradedate"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, log, err := di.Bootstrap(di.ConfigPath(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Error("invalid schedule timezone", logger.String("timezone", cfg.Schedule.Timezone), logger.Error(err))
		os.Exit(1)
	}
	spec, err := cron.ParseStandard(cfg.Schedule.Cron)
	if err != nil {
		log.Error("invalid schedule", logger.String("cron", cfg.Schedule.Cron), logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := di.Build(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("failed to build application", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("failed to close resources", logger.Error(err))
		}
	}()

	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	if _, err := s.Cron(cfg.Schedule.Cron).Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
		defer cancel()

		res, err := app.Orchestrator.Trigger(runCtx, tradedate.Today(time.Now()))
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			log.Info("scheduled run skipped, another run is in progress")
		case err != nil:
			log.Error("scheduled run not started", logger.Error(err))
		default:
			log.Info("scheduled run finished",
				logger.String("run_id", res.RunID),
				logger.String("status", string(res.Status)),
				logger.String("next", spec.Next(time.Now().In(loc)).Format(time.RFC3339)))
		}
	}); err != nil {
		log.Error("failed to register job", logger.Error(err))
		os.Exit(1)
	}

	s.StartAsync()
	log.Info("scheduler started",
		logger.String("cron", cfg.Schedule.Cron),
		logger.String("timezone", loc.String()),
		logger.String("next", spec.Next(time.Now().In(loc)).Format(time.RFC3339)))

	<-ctx.Done()
	log.Info("stopping scheduler")
	s.Stop()
}
