package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crossmarket/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createMarketTables = `
CREATE TABLE IF NOT EXISTS crypto_assets (
    id                  TEXT PRIMARY KEY,
    symbol              TEXT NOT NULL,
    name                TEXT NOT NULL,
    current_price       DOUBLE PRECISION,
    market_cap          DOUBLE PRECISION,
    market_cap_rank     INT,
    total_volume        DOUBLE PRECISION,
    circulating_supply  DOUBLE PRECISION,
    total_supply        DOUBLE PRECISION,
    ath                 DOUBLE PRECISION,
    atl                 DOUBLE PRECISION,
    supply_utilization  DOUBLE PRECISION,
    distance_from_ath   DOUBLE PRECISION,
    last_updated        DATE
);

CREATE TABLE IF NOT EXISTS crypto_prices (
    coin_id     TEXT NOT NULL REFERENCES crypto_assets(id),
    symbol      TEXT NOT NULL,
    name        TEXT NOT NULL,
    date        DATE NOT NULL,
    price_usd   DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (coin_id, date)
);

CREATE TABLE IF NOT EXISTS oil_prices (
    date        DATE PRIMARY KEY,
    price_usd   DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS index_prices (
    date        DATE NOT NULL,
    open        DOUBLE PRECISION NOT NULL,
    high        DOUBLE PRECISION NOT NULL,
    low         DOUBLE PRECISION NOT NULL,
    close       DOUBLE PRECISION NOT NULL,
    volume      BIGINT NOT NULL,
    ticker      TEXT NOT NULL,
    PRIMARY KEY (date, ticker),
    CHECK (high >= low AND low >= 0)
);

CREATE INDEX IF NOT EXISTS idx_crypto_prices_date ON crypto_prices (date);
CREATE INDEX IF NOT EXISTS idx_index_prices_ticker_date ON index_prices (ticker, date);
`

// ConstraintViolationError reports a primary or foreign key breach during
// a table reload. The reload is rolled back; nothing is silently dropped.
type ConstraintViolationError struct {
	Table      string
	Rows       int
	Constraint string
	Detail     string
	Err        error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint %s violated loading %d rows into %s: %s",
		e.Constraint, e.Rows, e.Table, e.Detail)
}

func (e *ConstraintViolationError) Unwrap() error { return e.Err }

// IsConstraintViolation reports whether err wraps a ConstraintViolationError.
func IsConstraintViolation(err error) bool {
	var ce *ConstraintViolationError
	return errors.As(err, &ce)
}

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// MarketRepository owns the four-table schema and is the sole writer.
// Every reload runs inside one transaction so readers never observe a
// half-replaced table.
type MarketRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewMarketRepository(pool PgxPool, tracer trace.Tracer) *MarketRepository {
	return &MarketRepository{pool: pool, tracer: tracer}
}

// InitSchema creates the four tables if absent. Safe to call on an
// already-initialized store.
func (r *MarketRepository) InitSchema(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "market-repo.init-schema")
	defer span.End()

	_, err := r.pool.Exec(ctx, createMarketTables)
	return err
}

// ReplaceAssets reloads crypto_assets and returns the inserted row count.
func (r *MarketRepository) ReplaceAssets(ctx context.Context, assets []domain.CryptoAsset) (int64, error) {
	_, span := r.tracer.Start(ctx, "market-repo.replace-assets")
	defer span.End()

	rows := make([][]any, 0, len(assets))
	for _, a := range assets {
		date, err := dateValue(a.LastUpdated)
		if err != nil {
			return 0, fmt.Errorf("asset %s: %w", a.ID, err)
		}
		rows = append(rows, []any{
			a.ID, a.Symbol, a.Name, a.CurrentPrice, a.MarketCap, a.MarketCapRank,
			a.TotalVolume, a.CirculatingSupply, a.TotalSupply, a.ATH, a.ATL,
			a.SupplyUtilization, a.DistanceFromATH, date,
		})
	}

	return r.replace(ctx, domain.TableCryptoAssets,
		[]string{"id", "symbol", "name", "current_price", "market_cap", "market_cap_rank",
			"total_volume", "circulating_supply", "total_supply", "ath", "atl",
			"supply_utilization", "distance_from_ath", "last_updated"},
		rows)
}

// ReplaceCryptoPrices reloads crypto_prices. The referenced assets must
// already be loaded or the foreign key fails the whole reload.
func (r *MarketRepository) ReplaceCryptoPrices(ctx context.Context, prices []domain.CryptoDailyPrice) (int64, error) {
	_, span := r.tracer.Start(ctx, "market-repo.replace-crypto-prices")
	defer span.End()

	rows := make([][]any, 0, len(prices))
	for _, p := range prices {
		date, err := dateValue(p.Date)
		if err != nil {
			return 0, fmt.Errorf("price %s/%s: %w", p.CoinID, p.Date, err)
		}
		rows = append(rows, []any{p.CoinID, p.Symbol, p.Name, date, p.PriceUSD})
	}

	return r.replace(ctx, domain.TableCryptoPrices,
		[]string{"coin_id", "symbol", "name", "date", "price_usd"}, rows)
}

// ReplaceOilPrices reloads oil_prices.
func (r *MarketRepository) ReplaceOilPrices(ctx context.Context, prices []domain.OilDailyPrice) (int64, error) {
	_, span := r.tracer.Start(ctx, "market-repo.replace-oil-prices")
	defer span.End()

	rows := make([][]any, 0, len(prices))
	for _, p := range prices {
		date, err := dateValue(p.Date)
		if err != nil {
			return 0, fmt.Errorf("oil price %s: %w", p.Date, err)
		}
		rows = append(rows, []any{date, p.PriceUSD})
	}

	return r.replace(ctx, domain.TableOilPrices, []string{"date", "price_usd"}, rows)
}

// ReplaceIndexBars reloads index_prices.
func (r *MarketRepository) ReplaceIndexBars(ctx context.Context, bars []domain.IndexDailyBar) (int64, error) {
	_, span := r.tracer.Start(ctx, "market-repo.replace-index-bars")
	defer span.End()

	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		date, err := dateValue(b.Date)
		if err != nil {
			return 0, fmt.Errorf("bar %s/%s: %w", b.Ticker, b.Date, err)
		}
		rows = append(rows, []any{date, b.Open, b.High, b.Low, b.Close, b.Volume, b.Ticker})
	}

	return r.replace(ctx, domain.TableIndexPrices,
		[]string{"date", "open", "high", "low", "close", "volume", "ticker"}, rows)
}

// replace deletes all rows of table and bulk-inserts the new ones inside
// a single transaction.
func (r *MarketRepository) replace(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin reload of %s: %w", table, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}

	inserted, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, classifyLoadError(table, len(rows), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit reload of %s: %w", table, err)
	}
	return inserted, nil
}

// Postgres error codes for constraint breaches.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

func classifyLoadError(table string, rows int, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation, pgUniqueViolation, pgCheckViolation:
			return &ConstraintViolationError{
				Table:      table,
				Rows:       rows,
				Constraint: pgErr.ConstraintName,
				Detail:     pgErr.Detail,
				Err:        err,
			}
		}
	}
	return fmt.Errorf("bulk insert into %s (%d rows): %w", table, rows, err)
}

func dateValue(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}
