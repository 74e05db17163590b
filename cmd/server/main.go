package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crossmarket/internal/bot"
	"crossmarket/internal/cache"
	"crossmarket/internal/config"
	"crossmarket/internal/db"
	"crossmarket/internal/domain"
	"crossmarket/internal/handler"
	"crossmarket/internal/job"
	"crossmarket/internal/provider"
	"crossmarket/internal/query"
	"crossmarket/internal/repository"
	"crossmarket/internal/service"
	"crossmarket/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "crossmarket/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newMarketRepoFunc      = repository.NewMarketRepository
	newPipelineServiceFunc = service.NewPipelineService
	newQueryServiceFunc    = service.NewQueryService
	newSchedulerFunc       = job.NewPipelineScheduler
	startSchedulerFunc     = func(s *job.PipelineScheduler, ctx context.Context) { go s.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Crossmarket API
// @version         1.0
// @description     Cross-market price analytics: crypto, oil, and stock indices in one store.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Repository and schema. Without DATABASE_URL the store stays nil
	// and the query and pipeline endpoints answer 503.
	var marketStore service.MarketStore
	var querier query.Querier
	if db.Pool != nil {
		marketRepo := newMarketRepoFunc(db.Pool, tracer)
		if err := marketRepo.InitSchema(ctx); err != nil {
			log.Fatalf("failed to initialize schema: %v", err)
		}
		marketStore = marketRepo
		querier = db.Pool
	}

	// Source adapters
	timeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second
	coingecko := provider.NewCoinGeckoProvider(tracer, timeout, cfg.FetchMaxAttempts)
	oil := provider.NewOilProvider(tracer, cfg.OilCSVURL, timeout, cfg.FetchMaxAttempts)
	yahoo := provider.NewYahooProvider(tracer, timeout, cfg.FetchMaxAttempts)

	// Services
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
	pipelineService := newPipelineServiceFunc(coingecko, oil, yahoo, marketStore, settings, tracer)
	runner := query.NewRunner(querier, tracer)
	queryService := newQueryServiceFunc(tracer, runner, cache.Client,
		time.Duration(cfg.QueryCacheTTLSecs)*time.Second)

	// Background pipeline runs (disabled when the interval is zero or
	// there is no store to load into)
	if cfg.PipelineInterval > 0 && marketStore != nil {
		scheduler := newSchedulerFunc(tracer, job.RunnerFunc(func(ctx context.Context) error {
			report, err := pipelineService.Run(ctx)
			if err != nil {
				return err
			}
			if report.Failed() {
				log.Printf("pipeline run finished with failures: %+v", report.Tables)
			}
			return nil
		}), cfg.PipelineInterval)
		startSchedulerFunc(scheduler, ctx)
	}

	// Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(queryService)

	// Handlers and routes
	h := newHandlerFunc(tracer, queryService, pipelineService, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("crossmarket"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
