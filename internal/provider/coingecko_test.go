package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, payload any) *http.Response {
	data, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func TestCoinGeckoProviderFetchTopAssets(t *testing.T) {
	t.Parallel()

	provider := NewCoinGeckoProvider(testTracer, time.Second, 1)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/coins/markets") {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if req.URL.Query().Get("per_page") != "250" {
				t.Fatalf("unexpected page size: %s", req.URL.RawQuery)
			}
			resp := []map[string]any{
				{
					"id": "bitcoin", "symbol": "btc", "name": "Bitcoin",
					"current_price": 90000.0, "market_cap": 1.8e12, "market_cap_rank": 1,
					"total_volume": 3.2e10, "circulating_supply": 1.9e7, "total_supply": 2.1e7,
					"ath": 109000.0, "atl": 67.81, "last_updated": "2025-06-01T08:00:00.000Z",
				},
			}
			return jsonResponse(http.StatusOK, resp), nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	records, err := provider.FetchTopAssets(context.Background(), 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.ID != "bitcoin" || rec.CurrentPrice != 90000 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.MarketCapRank == nil || *rec.MarketCapRank != 1 {
		t.Fatalf("rank not parsed: %+v", rec.MarketCapRank)
	}
	if rec.TotalSupply == nil || *rec.TotalSupply != 2.1e7 {
		t.Fatalf("total supply not parsed: %+v", rec.TotalSupply)
	}
}

func TestCoinGeckoProviderFetchDailyPrices(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)

	provider := NewCoinGeckoProvider(testTracer, time.Second, 1)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/coins/bitcoin/market_chart") {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			resp := map[string]any{
				"prices": [][]float64{
					{float64(day1.UnixMilli()), 90000},
					{float64(day2.UnixMilli()), 91000},
				},
			}
			return jsonResponse(http.StatusOK, resp), nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	rows, err := provider.FetchDailyPrices(context.Background(), "bitcoin", "btc", "Bitcoin", 365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Date != "2025-06-01" || rows[0].PriceUSD != 90000 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if rows[0].Symbol != "BTC" || rows[0].CoinID != "bitcoin" {
		t.Fatalf("identity fields wrong: %+v", rows[0])
	}
}

func TestCoinGeckoProviderClientErrorIsPermanent(t *testing.T) {
	t.Parallel()

	calls := 0
	provider := NewCoinGeckoProvider(testTracer, time.Second, 3)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(http.StatusNotFound, map[string]string{"error": "coin not found"}), nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	_, err := provider.FetchDailyPrices(context.Background(), "no-such-coin", "x", "X", 365)
	if !IsSourceUnavailable(err) {
		t.Fatalf("expected SourceUnavailableError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls)
	}
}

func TestCoinGeckoProviderRetriesServerErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	provider := NewCoinGeckoProvider(testTracer, time.Second, 3)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return jsonResponse(http.StatusBadGateway, map[string]string{"error": "upstream"}), nil
			}
			return jsonResponse(http.StatusOK, []map[string]any{}), nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	if _, err := provider.FetchTopAssets(context.Background(), 10); err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}
