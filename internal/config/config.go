package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL      string
	RedisURL         string
	TelegramBotToken string
	APIKey           string
	HTTPPort         int

	SSHPort        int
	SSHHostKeyPath string

	TopAssets      int
	HistoryCoins   int
	HistoryDays    int
	OilCSVURL      string
	OilStartDate   string
	OilEndDate     string
	IndexStartDate string
	IndexEndDate   string

	FetchTimeoutSecs  int
	FetchMaxAttempts  int
	PipelineInterval  int // seconds between scheduled full reloads; 0 disables
	QueryCacheTTLSecs int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.SSHPort = 2222
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}

	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/crossmarket_ed25519"
	}

	cfg.TopAssets = 250
	if v := strings.TrimSpace(os.Getenv("TOP_ASSETS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 250 {
			cfg.TopAssets = n
		}
	}

	cfg.HistoryCoins = 3
	if v := strings.TrimSpace(os.Getenv("HISTORY_COINS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryCoins = n
		}
	}

	cfg.HistoryDays = 365
	if v := strings.TrimSpace(os.Getenv("HISTORY_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryDays = n
		}
	}

	cfg.OilCSVURL = strings.TrimSpace(os.Getenv("OIL_CSV_URL"))
	if cfg.OilCSVURL == "" {
		cfg.OilCSVURL = "https://raw.githubusercontent.com/datasets/oil-prices/main/data/wti-daily.csv"
	}

	cfg.OilStartDate = dateEnv("OIL_START_DATE", "2020-01-01")
	cfg.OilEndDate = dateEnv("OIL_END_DATE", "2026-01-31")
	cfg.IndexStartDate = dateEnv("INDEX_START_DATE", "2020-01-01")
	cfg.IndexEndDate = dateEnv("INDEX_END_DATE", "2025-09-30")

	cfg.FetchTimeoutSecs = 30
	if v := strings.TrimSpace(os.Getenv("FETCH_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchTimeoutSecs = n
		}
	}

	cfg.FetchMaxAttempts = 3
	if v := strings.TrimSpace(os.Getenv("FETCH_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchMaxAttempts = n
		}
	}

	cfg.PipelineInterval = 0
	if v := strings.TrimSpace(os.Getenv("PIPELINE_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PipelineInterval = n
		}
	}

	cfg.QueryCacheTTLSecs = 300
	if v := strings.TrimSpace(os.Getenv("QUERY_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueryCacheTTLSecs = n
		}
	}

	return cfg
}

func dateEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if len(v) != 10 || v[4] != '-' || v[7] != '-' {
		log.Printf("Warning: %s=%q is not an ISO date, using %s", key, v, fallback)
		return fallback
	}
	return v
}
