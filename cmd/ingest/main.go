// Command ingest runs the daily pipeline once and prints the run report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ngx_pipeline/internal/app/di"
	"ngx_pipeline/internal/feature/pipeline/domain/entity"
	"ngx_pipeline/internal/feature/pipeline/transport/http/dto"
	"ngx_pipeline/internal/platform/logger"
	"ngx_pipeline/internal/shared/tradedate"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	date := flag.String("date", "", "trading date to load (YYYY-MM-DD), defaults to today in Lagos")
	flag.Parse()

	os.Exit(run(*configPath, *date))
}

func run(configPath, date string) int {
	cfg, log, err := di.Bootstrap(di.ConfigPath(configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	asOf := tradedate.Today(time.Now())
	if date != "" {
		if asOf, err = tradedate.Parse(date); err != nil {
			log.Error("invalid -date", logger.String("date", date), logger.Error(err))
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
	defer cancel()

	app, err := di.Build(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		log.Error("failed to build application", logger.Error(err))
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("failed to close resources", logger.Error(err))
		}
	}()

	res, err := app.Orchestrator.Trigger(ctx, asOf)
	if err != nil {
		log.Error("pipeline not started", logger.Error(err))
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto.NewRunResponse(res)); err != nil {
		log.Error("failed to write report", logger.Error(err))
	}
	if res.Status == entity.StatusFailed {
		return 1
	}
	return 0
}
