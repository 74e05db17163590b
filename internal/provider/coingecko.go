package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crossmarket/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches asset metadata and daily price history from
// the CoinGecko free API.
type CoinGeckoProvider struct {
	client      *http.Client
	baseURL     string
	tracer      trace.Tracer
	limiter     *RateLimiter
	maxAttempts int
}

// NewCoinGeckoProvider creates a provider with built-in rate limiting.
// The free tier allows roughly 8 requests per minute.
func NewCoinGeckoProvider(tracer trace.Tracer, timeout time.Duration, maxAttempts int) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		client:      &http.Client{Timeout: timeout},
		baseURL:     coingeckoBaseURL,
		tracer:      tracer,
		limiter:     NewRateLimiter(8, 7500*time.Millisecond),
		maxAttempts: maxAttempts,
	}
}

// FetchTopAssets fetches metadata for the top n coins by market cap.
func (p *CoinGeckoProvider) FetchTopAssets(ctx context.Context, n int) ([]domain.AssetRecord, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-top-assets")
	defer span.End()

	url := fmt.Sprintf("%s/coins/markets?vs_currency=usd&per_page=%d&order=market_cap_desc&page=1&sparkline=false",
		p.baseURL, n)

	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, unavailable(domain.SourceCoinGecko, fmt.Errorf("fetch top assets: %w", err))
	}

	var records []domain.AssetRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, unavailable(domain.SourceCoinGecko, fmt.Errorf("parse markets payload: %w", err))
	}
	return records, nil
}

// FetchDailyPrices fetches daily price history for one coin. The
// market_chart endpoint returns [timestamp_ms, price] pairs; one row per
// calendar date is emitted, last sample of a date winning.
func (p *CoinGeckoProvider) FetchDailyPrices(ctx context.Context, coinID, symbol, name string, days int) ([]domain.CryptoDailyPrice, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-daily-prices")
	defer span.End()

	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d",
		p.baseURL, coinID, days)

	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, unavailable(domain.SourceCoinGecko, fmt.Errorf("fetch daily prices for %s: %w", coinID, err))
	}

	var raw struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, unavailable(domain.SourceCoinGecko, fmt.Errorf("parse market chart for %s: %w", coinID, err))
	}

	rows := make([]domain.CryptoDailyPrice, 0, len(raw.Prices))
	for _, pt := range raw.Prices {
		if len(pt) < 2 {
			continue
		}
		date := time.UnixMilli(int64(pt[0])).UTC().Format("2006-01-02")
		rows = append(rows, domain.CryptoDailyPrice{
			CoinID:   coinID,
			Symbol:   strings.ToUpper(symbol),
			Name:     name,
			Date:     date,
			PriceUSD: pt[1],
		})
	}
	return rows, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := withRetry(ctx, p.maxAttempts, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(msg))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}
