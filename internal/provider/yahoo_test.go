package provider

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestYahooProviderFetchDailyBars(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 3, 13, 30, 0, 0, time.UTC)

	provider := NewYahooProvider(testTracer, time.Second, 1)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/v8/finance/chart/") {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if req.Header.Get("User-Agent") == "" || strings.HasPrefix(req.Header.Get("User-Agent"), "Go-http-client") {
				t.Fatal("chart endpoint needs a browser-like user agent")
			}
			resp := map[string]any{
				"chart": map[string]any{
					"result": []map[string]any{{
						"timestamp": []int64{day1.Unix(), day2.Unix()},
						"indicators": map[string]any{
							"quote": []map[string]any{{
								"open":   []any{5910.1, nil},
								"high":   []any{5950.2, 5970.0},
								"low":    []any{5890.5, 5920.0},
								"close":  []any{5940.8, 5960.3},
								"volume": []any{3.1e9, 2.9e9},
							}},
						},
					}},
					"error": nil,
				},
			}
			return jsonResponse(http.StatusOK, resp), nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	records, err := provider.FetchDailyBars(context.Background(), "^GSPC", "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(records))
	}
	first := records[0]
	if first.Date != "2025-06-02" || first.Ticker != "^GSPC" {
		t.Fatalf("unexpected bar: %+v", first)
	}
	if first.Open == nil || *first.Open != 5910.1 {
		t.Fatalf("open not parsed: %+v", first.Open)
	}
	// Null quote fields stay nil so the transform layer can drop the bar.
	if records[1].Open != nil {
		t.Fatalf("null open should stay nil: %+v", records[1].Open)
	}
}

func TestYahooProviderChartError(t *testing.T) {
	t.Parallel()

	provider := NewYahooProvider(testTracer, time.Second, 1)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			resp := map[string]any{
				"chart": map[string]any{
					"result": nil,
					"error": map[string]any{
						"code":        "Not Found",
						"description": "No data found, symbol may be delisted",
					},
				},
			}
			return jsonResponse(http.StatusOK, resp), nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	_, err := provider.FetchDailyBars(context.Background(), "^NOPE", "2025-01-01", "2025-01-31")
	if !IsSourceUnavailable(err) {
		t.Fatalf("expected SourceUnavailableError, got %v", err)
	}
	if !strings.Contains(err.Error(), "delisted") {
		t.Fatalf("chart error description lost: %v", err)
	}
}

func TestYahooProviderBadDates(t *testing.T) {
	t.Parallel()

	provider := NewYahooProvider(testTracer, time.Second, 1)
	if _, err := provider.FetchDailyBars(context.Background(), "^GSPC", "June 1st", "2025-06-30"); err == nil {
		t.Fatal("expected error for unparseable start date")
	}
}
