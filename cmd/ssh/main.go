package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"crossmarket/internal/cache"
	"crossmarket/internal/config"
	"crossmarket/internal/db"
	"crossmarket/internal/provider"
	"crossmarket/internal/query"
	"crossmarket/internal/repository"
	"crossmarket/internal/service"
	"crossmarket/internal/tui"
	"crossmarket/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initPostgresFunc  = db.InitPostgres
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

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

	// The dashboard is read-only, so sources are wired only to expose
	// the last report through the pipeline service. Without DATABASE_URL
	// the store stays nil and query runs report the store unavailable.
	timeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second
	var marketStore service.MarketStore
	var querier query.Querier
	if db.Pool != nil {
		marketStore = repository.NewMarketRepository(db.Pool, tracer)
		querier = db.Pool
	}
	coingecko := provider.NewCoinGeckoProvider(tracer, timeout, cfg.FetchMaxAttempts)
	oil := provider.NewOilProvider(tracer, cfg.OilCSVURL, timeout, cfg.FetchMaxAttempts)
	yahoo := provider.NewYahooProvider(tracer, timeout, cfg.FetchMaxAttempts)
	pipelineService := service.NewPipelineService(coingecko, oil, yahoo, marketStore, service.PipelineSettings{}, tracer)

	runner := query.NewRunner(querier, tracer)
	queryService := service.NewQueryService(tracer, runner, cache.Client,
		time.Duration(cfg.QueryCacheTTLSecs)*time.Second)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	// Any key may connect; every session is read-only and every query
	// comes from the fixed catalog.
	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			log.Printf("SSH session: user=%s", ctx.User())
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				svc := tui.Services{
					Queries:  queryService,
					Report:   pipelineService,
					Username: s.User(),
				}

				model := tui.NewAppModel(svc)
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	log.Println("SSH server exited")
}
