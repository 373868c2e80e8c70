// Package main is the entry point for the analysis and advisory service:
// it wires configuration, storage, the forecasting/news/technical
// coordinators, the request orchestrator, the backtest context manager,
// and the HTTP server, then serves until a shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/aggregation"
	"github.com/aristath/sentinel/internal/artifactstore"
	"github.com/aristath/sentinel/internal/backtest"
	backteststore "github.com/aristath/sentinel/internal/backtest/store"
	"github.com/aristath/sentinel/internal/config"
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/forecasting"
	"github.com/aristath/sentinel/internal/marketdata"
	"github.com/aristath/sentinel/internal/modelcache"
	"github.com/aristath/sentinel/internal/newsnlp"
	"github.com/aristath/sentinel/internal/newssource"
	"github.com/aristath/sentinel/internal/nlpmodels"
	"github.com/aristath/sentinel/internal/orchestrator"
	"github.com/aristath/sentinel/internal/predictclient"
	"github.com/aristath/sentinel/internal/profilestore"
	"github.com/aristath/sentinel/internal/rules"
	"github.com/aristath/sentinel/internal/rulestore"
	"github.com/aristath/sentinel/internal/scheduler"
	"github.com/aristath/sentinel/internal/server"
	"github.com/aristath/sentinel/internal/techreport"
	"github.com/aristath/sentinel/internal/workers"
	"github.com/aristath/sentinel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	marketStore, err := marketdata.Open("market_data.db", log)
	if err != nil {
		return fmt.Errorf("open market data store: %w", err)
	}
	defer marketStore.Close()

	registry := rules.NewRegistry(log)
	rules.RegisterCoreOperators(registry)

	ruleDB, err := rulestore.Open("rules.db", registry, log)
	if err != nil {
		return fmt.Errorf("open rule store: %w", err)
	}
	defer ruleDB.Close()

	profileDB, err := profilestore.Open("profiles.db", log)
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	defer profileDB.Close()

	backtestDB, err := backteststore.Open("backtest_reports.db", log)
	if err != nil {
		return fmt.Errorf("open backtest report store: %w", err)
	}
	defer backtestDB.Close()

	artifacts, err := artifactstore.New(ctx, artifactstore.Config{
		Bucket:   cfg.ArtifactStoreBaseURL,
		CacheDir: "artifact-cache",
	}, log)
	if err != nil {
		return fmt.Errorf("init artifact store: %w", err)
	}

	modelCache := modelcache.New(log)
	predictors := predictclient.NewClient(cfg.PredictServiceURL, log)

	templates := defaultTaskTemplates()
	forecaster := forecasting.NewCoordinator(modelCache, artifacts.Load, predictors, predictors.NewExplainerFactory(), templates, log)

	pool := workers.NewPool(cfg.WorkerPoolSize)
	nlpClient := nlpmodels.NewClient(cfg.NLPServiceURL, log)
	newsCoordinator := newsnlp.NewCoordinator(
		nlpClient.Sentiment(), nlpClient.NER(), nlpClient.Impact(), nlpClient.Keyword(),
		pool, log,
	)
	newsSource := newssource.NewClient(cfg.NewsSourceURL, log)

	sectors, err := marketStore.Sectors(ctx)
	if err != nil {
		return fmt.Errorf("list sectors: %w", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Metadata:    marketStore,
		OHLCV:       marketStore,
		Tech:        techreport.NewAnalyzer(),
		Forecaster:  forecaster,
		News:        newsCoordinator,
		NewsSource:  newsSource,
		Profiles:    profileDB,
		RuleRuntime: ruleDB,
		Aggregator:  aggregation.NewAggregator(aggregation.NewDefaultMapper()),
		Sectors:     sectors,
	}, log)

	if err := orch.PreloadAll(ctx); err != nil {
		log.Warn().Err(err).Msg("initial pre-warm failed, requests return not-ready until a later PreloadAll succeeds")
	}

	backtestClient := backtest.NewHTTPClient(cfg.BacktestJobServiceURL, log)
	backtestManager := backtest.NewManager(cfg.BacktestConcurrencyLimit, backtest.DefaultSelectorConfig(), log)
	backtestLoad := func(ctx context.Context, ticker, jobID string) ([]*domain.AnalysisReport, error) {
		return backtestDB.LoadReports(ticker, jobID)
	}

	httpServer := server.New(server.Config{
		Log:             log,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
		Orchestrator:    orch,
		Registry:        registry,
		RuleLister:      ruleDB,
		BacktestManager: backtestManager,
		BacktestFetch:   marketStore.Daily,
		BacktestClient:  backtestClient,
		BacktestLoad:    backtestLoad,
		PollingInterval: cfg.PollingInterval,
		PollingDeadline: cfg.PollingDeadline,
	})

	var cron *scheduler.Scheduler
	if cfg.PreloadCronSchedule != "" {
		cron = scheduler.New(log)
		if err := cron.AddJob(cfg.PreloadCronSchedule, scheduler.NewPreloadJob(orch, cfg.PollingDeadline)); err != nil {
			return fmt.Errorf("register preload job: %w", err)
		}
		cron.Start()
		defer cron.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// defaultTaskTemplates are the fixed forecasting task shapes this service
// always evaluates: a triple-barrier classifier plus 5-day and 20-day
// distribution regressors.
func defaultTaskTemplates() []forecasting.TaskTemplate {
	return []forecasting.TaskTemplate{
		{
			ProblemID: "clf-triple-barrier",
			Metadata:  domain.TaskMetadata{TripleBarrier: &domain.TripleBarrierMetadata{Horizon: 10}},
			Units:     domain.UnitsCategory,
		},
		{
			ProblemID:     "reg-5d-distribution",
			Metadata:      domain.TaskMetadata{NDayDistribution: &domain.NDayDistributionMetadata{Horizon: 5}},
			Units:         domain.UnitsPercent,
			IsPercent:     true,
			RoundDecimals: 2,
		},
		{
			ProblemID:     "reg-20d-distribution",
			Metadata:      domain.TaskMetadata{NDayDistribution: &domain.NDayDistributionMetadata{Horizon: 20}},
			Units:         domain.UnitsPercent,
			IsPercent:     true,
			RoundDecimals: 2,
		},
	}
}
