package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"crossmarket/internal/domain"
	"crossmarket/internal/transform"

	"go.opentelemetry.io/otel/trace"
)

type CryptoSource interface {
	FetchTopAssets(ctx context.Context, limit int) ([]domain.AssetRecord, error)
	FetchDailyPrices(ctx context.Context, coinID, symbol, name string, days int) ([]domain.CryptoDailyPrice, error)
}

type OilSource interface {
	FetchDailyPrices(ctx context.Context, start, end string) ([]domain.OilRecord, error)
}

type IndexSource interface {
	FetchDailyBars(ctx context.Context, ticker, start, end string) ([]domain.IndexBarRecord, error)
}

type MarketStore interface {
	InitSchema(ctx context.Context) error
	ReplaceAssets(ctx context.Context, assets []domain.CryptoAsset) (int64, error)
	ReplaceCryptoPrices(ctx context.Context, prices []domain.CryptoDailyPrice) (int64, error)
	ReplaceOilPrices(ctx context.Context, prices []domain.OilDailyPrice) (int64, error)
	ReplaceIndexBars(ctx context.Context, bars []domain.IndexDailyBar) (int64, error)
}

// ErrStoreUnavailable is returned by Run when the service was wired
// without a store, such as a server started without DATABASE_URL.
var ErrStoreUnavailable = errors.New("no data store configured")

// Table load outcomes.
const (
	StatusLoaded  = "loaded"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// TableReport records what one run did to one table.
type TableReport struct {
	Table  string          `json:"table"`
	Status string          `json:"status"`
	Rows   int64           `json:"rows"`
	Stats  transform.Stats `json:"stats"`
	Error  string          `json:"error,omitempty"`
}

// RunReport summarizes one pipeline run: per-table outcomes plus the
// source-level errors that did not map to a single table.
type RunReport struct {
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Tables       []TableReport `json:"tables"`
	SourceErrors []string      `json:"source_errors,omitempty"`
}

// Failed reports whether any table load ended in failure.
func (r *RunReport) Failed() bool {
	for _, t := range r.Tables {
		if t.Status == StatusFailed {
			return true
		}
	}
	return false
}

// PipelineSettings carries the fetch windows and sizes for one run.
type PipelineSettings struct {
	TopAssets      int
	HistoryCoins   int
	HistoryDays    int
	OilStartDate   string
	OilEndDate     string
	IndexStartDate string
	IndexEndDate   string
	IndexTickers   []string
}

// PipelineService runs the fetch-transform-load cycle. Sources are
// fetched concurrently; loads are serialized through the single writer,
// assets strictly before their dependent price rows. A failing source
// leaves its tables untouched and never blocks the others.
type PipelineService struct {
	crypto   CryptoSource
	oil      OilSource
	index    IndexSource
	store    MarketStore
	settings PipelineSettings
	tracer   trace.Tracer

	mu         sync.Mutex
	lastReport *RunReport
}

func NewPipelineService(crypto CryptoSource, oil OilSource, index IndexSource,
	store MarketStore, settings PipelineSettings, tracer trace.Tracer) *PipelineService {
	return &PipelineService{
		crypto:   crypto,
		oil:      oil,
		index:    index,
		store:    store,
		settings: settings,
		tracer:   tracer,
	}
}

// LastReport returns the report of the most recent run, or nil before
// the first run completes.
func (s *PipelineService) LastReport() *RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

type cryptoFetch struct {
	assets     []domain.CryptoAsset
	prices     []domain.CryptoDailyPrice
	assetStats transform.Stats
	priceStats transform.Stats
	errs       []string
	err        error
}

type oilFetch struct {
	prices []domain.OilDailyPrice
	stats  transform.Stats
	err    error
}

type indexFetch struct {
	bars  []domain.IndexDailyBar
	stats transform.Stats
	errs  []string
}

// Run executes one full pipeline cycle and returns its report. The
// returned error is non-nil only when the store itself is unreachable;
// per-source and per-table failures live in the report.
func (s *PipelineService) Run(ctx context.Context) (*RunReport, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	report := &RunReport{StartedAt: time.Now().UTC()}

	if err := s.store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	var (
		wg     sync.WaitGroup
		crypto cryptoFetch
		oil    oilFetch
		index  indexFetch
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		crypto = s.fetchCrypto(ctx)
	}()
	go func() {
		defer wg.Done()
		oil = s.fetchOil(ctx)
	}()
	go func() {
		defer wg.Done()
		index = s.fetchIndex(ctx)
	}()
	wg.Wait()

	report.SourceErrors = append(report.SourceErrors, crypto.errs...)
	report.SourceErrors = append(report.SourceErrors, index.errs...)

	// Loads run one at a time. Assets go first so the crypto_prices
	// foreign key always has its parent rows.
	if crypto.err != nil {
		report.SourceErrors = append(report.SourceErrors, crypto.err.Error())
		report.Tables = append(report.Tables,
			TableReport{Table: domain.TableCryptoAssets, Status: StatusFailed, Error: crypto.err.Error()},
			TableReport{Table: domain.TableCryptoPrices, Status: StatusFailed, Error: "assets fetch failed"})
	} else {
		assetReport := s.load(ctx, domain.TableCryptoAssets, crypto.assetStats, len(crypto.assets), func() (int64, error) {
			return s.store.ReplaceAssets(ctx, crypto.assets)
		})
		report.Tables = append(report.Tables, assetReport)

		if assetReport.Status != StatusLoaded {
			// Without a fresh parent table the price reload would
			// either orphan rows or trip the foreign key.
			report.Tables = append(report.Tables,
				TableReport{Table: domain.TableCryptoPrices, Status: StatusSkipped, Stats: crypto.priceStats,
					Error: "asset reload did not complete"})
		} else {
			report.Tables = append(report.Tables, s.load(ctx, domain.TableCryptoPrices, crypto.priceStats, len(crypto.prices), func() (int64, error) {
				return s.store.ReplaceCryptoPrices(ctx, crypto.prices)
			}))
		}
	}

	if oil.err != nil {
		report.SourceErrors = append(report.SourceErrors, oil.err.Error())
		report.Tables = append(report.Tables,
			TableReport{Table: domain.TableOilPrices, Status: StatusFailed, Error: oil.err.Error()})
	} else {
		report.Tables = append(report.Tables, s.load(ctx, domain.TableOilPrices, oil.stats, len(oil.prices), func() (int64, error) {
			return s.store.ReplaceOilPrices(ctx, oil.prices)
		}))
	}

	report.Tables = append(report.Tables, s.load(ctx, domain.TableIndexPrices, index.stats, len(index.bars), func() (int64, error) {
		return s.store.ReplaceIndexBars(ctx, index.bars)
	}))

	report.FinishedAt = time.Now().UTC()

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	return report, nil
}

// load replaces one table, mapping an empty-but-successful fetch to a
// skip that preserves the table's previous contents.
func (s *PipelineService) load(ctx context.Context, table string, stats transform.Stats, rows int, replace func() (int64, error)) TableReport {
	if rows == 0 {
		log.Printf("pipeline: %s fetch returned no rows, keeping previous contents", table)
		return TableReport{Table: table, Status: StatusSkipped, Stats: stats}
	}

	inserted, err := replace()
	if err != nil {
		log.Printf("pipeline: reload of %s failed: %v", table, err)
		return TableReport{Table: table, Status: StatusFailed, Stats: stats, Error: err.Error()}
	}
	return TableReport{Table: table, Status: StatusLoaded, Rows: inserted, Stats: stats}
}

func (s *PipelineService) fetchCrypto(ctx context.Context) cryptoFetch {
	var out cryptoFetch

	records, err := s.crypto.FetchTopAssets(ctx, s.settings.TopAssets)
	if err != nil {
		out.err = fmt.Errorf("fetch top assets: %w", err)
		return out
	}
	out.assets, out.assetStats = transform.CleanAssets(records)

	// Daily history only for the highest-ranked coins. A coin whose
	// history fetch fails is reported and dropped; the rest still load.
	var raw []domain.CryptoDailyPrice
	for _, asset := range topRanked(out.assets, s.settings.HistoryCoins) {
		prices, err := s.crypto.FetchDailyPrices(ctx, asset.ID, asset.Symbol, asset.Name, s.settings.HistoryDays)
		if err != nil {
			out.errs = append(out.errs, fmt.Sprintf("history for %s: %v", asset.ID, err))
			continue
		}
		raw = append(raw, prices...)
	}
	out.prices, out.priceStats = transform.CleanCryptoPrices(raw)
	return out
}

func (s *PipelineService) fetchOil(ctx context.Context) oilFetch {
	var out oilFetch

	records, err := s.oil.FetchDailyPrices(ctx, s.settings.OilStartDate, s.settings.OilEndDate)
	if err != nil {
		out.err = fmt.Errorf("fetch oil prices: %w", err)
		return out
	}
	out.prices, out.stats = transform.CleanOilPrices(records)
	return out
}

func (s *PipelineService) fetchIndex(ctx context.Context) indexFetch {
	var out indexFetch

	// One bad ticker must not sink the other indices.
	var raw []domain.IndexBarRecord
	for _, ticker := range s.settings.IndexTickers {
		bars, err := s.index.FetchDailyBars(ctx, ticker, s.settings.IndexStartDate, s.settings.IndexEndDate)
		if err != nil {
			out.errs = append(out.errs, fmt.Sprintf("bars for %s: %v", ticker, err))
			continue
		}
		raw = append(raw, bars...)
	}
	out.bars, out.stats = transform.CleanIndexBars(raw)
	return out
}

// topRanked picks the n best-ranked assets. Unranked assets sort last.
func topRanked(assets []domain.CryptoAsset, n int) []domain.CryptoAsset {
	ranked := make([]domain.CryptoAsset, len(assets))
	copy(ranked, assets)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].MarketCapRank, ranked[j].MarketCapRank
		if ri == nil {
			return false
		}
		if rj == nil {
			return true
		}
		return *ri < *rj
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
