package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"crossmarket/internal/config"
	"crossmarket/internal/db"
	"crossmarket/internal/domain"
	"crossmarket/internal/provider"
	"crossmarket/internal/repository"
	"crossmarket/internal/service"
	"crossmarket/pkg/tracing"

	"github.com/joho/godotenv"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initTracerFunc   = tracing.InitTracer
	runPipelineFunc  = func(ctx context.Context, svc *service.PipelineService) (*service.RunReport, error) {
		return svc.Run(ctx)
	}
	exitFunc = os.Exit
)

// One-shot ingestion run. Fetches all three sources, reloads the store,
// and prints the run report as JSON.
func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	initPostgresFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	timeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second
	var marketStore service.MarketStore
	if db.Pool != nil {
		marketStore = repository.NewMarketRepository(db.Pool, tracer)
	}
	coingecko := provider.NewCoinGeckoProvider(tracer, timeout, cfg.FetchMaxAttempts)
	oil := provider.NewOilProvider(tracer, cfg.OilCSVURL, timeout, cfg.FetchMaxAttempts)
	yahoo := provider.NewYahooProvider(tracer, timeout, cfg.FetchMaxAttempts)

	settings := service.PipelineSettings{
		TopAssets:      cfg.TopAssets,
		HistoryCoins:   cfg.HistoryCoins,
		HistoryDays:    cfg.HistoryDays,
		OilStartDate:   cfg.OilStartDate,
		OilEndDate:     cfg.OilEndDate,
		IndexStartDate: cfg.IndexStartDate,
		IndexEndDate:   cfg.IndexEndDate,
		IndexTickers:   domain.IndexTickers,
	}
	pipelineService := service.NewPipelineService(coingecko, oil, yahoo, marketStore, settings, tracer)

	report, err := runPipelineFunc(ctx, pipelineService)
	if err != nil {
		log.Fatalf("pipeline run failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("encode report: %v", err)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))

	if report.Failed() {
		exitFunc(1)
	}
}
