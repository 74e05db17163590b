package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"crossmarket/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider fetches daily OHLCV bars from the Yahoo Finance chart
// endpoint. One call covers one ticker; callers iterate tickers and keep
// failures per-ticker so one bad symbol does not sink the rest.
type YahooProvider struct {
	client      *http.Client
	baseURL     string
	tracer      trace.Tracer
	limiter     *RateLimiter
	maxAttempts int
}

func NewYahooProvider(tracer trace.Tracer, timeout time.Duration, maxAttempts int) *YahooProvider {
	return &YahooProvider{
		client:      &http.Client{Timeout: timeout},
		baseURL:     yahooBaseURL,
		tracer:      tracer,
		limiter:     NewRateLimiter(4, 2*time.Second),
		maxAttempts: maxAttempts,
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDailyBars fetches daily bars for ticker between two ISO dates
// (inclusive start, exclusive end on the wire, matching the chart API).
func (p *YahooProvider) FetchDailyBars(ctx context.Context, ticker, start, end string) ([]domain.IndexBarRecord, error) {
	_, span := p.tracer.Start(ctx, "yahoo.fetch-daily-bars")
	defer span.End()

	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, unavailable(domain.SourceYahoo, fmt.Errorf("bad start date %q: %w", start, err))
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, unavailable(domain.SourceYahoo, fmt.Errorf("bad end date %q: %w", end, err))
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		p.baseURL, url.PathEscape(ticker), from.Unix(), to.AddDate(0, 0, 1).Unix())

	body, err := p.doRequest(ctx, reqURL)
	if err != nil {
		return nil, unavailable(domain.SourceYahoo, fmt.Errorf("fetch bars for %s: %w", ticker, err))
	}

	var raw yahooChartResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, unavailable(domain.SourceYahoo, fmt.Errorf("parse chart for %s: %w", ticker, err))
	}
	if raw.Chart.Error != nil {
		return nil, unavailable(domain.SourceYahoo,
			fmt.Errorf("chart API error for %s: %s (%s)", ticker, raw.Chart.Error.Code, raw.Chart.Error.Description))
	}
	if len(raw.Chart.Result) == 0 || len(raw.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, unavailable(domain.SourceYahoo, fmt.Errorf("empty chart result for %s", ticker))
	}

	result := raw.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	records := make([]domain.IndexBarRecord, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		records = append(records, domain.IndexBarRecord{
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
			Ticker: ticker,
		})
	}
	return records, nil
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

func (p *YahooProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
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
		// The chart endpoint rejects the default Go user agent.
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; crossmarket/1.0)")

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("yahoo API error %d: %s", resp.StatusCode, string(msg))
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
