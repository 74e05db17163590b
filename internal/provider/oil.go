package provider

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crossmarket/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"
)

// OilProvider downloads the public WTI daily price CSV. The file is a
// flat historical extract, not a live query API.
type OilProvider struct {
	client      *http.Client
	url         string
	tracer      trace.Tracer
	maxAttempts int
}

func NewOilProvider(tracer trace.Tracer, url string, timeout time.Duration, maxAttempts int) *OilProvider {
	return &OilProvider{
		client:      &http.Client{Timeout: timeout},
		url:         url,
		tracer:      tracer,
		maxAttempts: maxAttempts,
	}
}

// FetchDailyPrices downloads the CSV and returns the rows whose date
// falls inside [start, end]. Fields are kept as raw strings; the
// transform layer parses and validates them.
func (p *OilProvider) FetchDailyPrices(ctx context.Context, start, end string) ([]domain.OilRecord, error) {
	_, span := p.tracer.Start(ctx, "oil.fetch-daily-prices")
	defer span.End()

	var body []byte
	err := withRetry(ctx, p.maxAttempts, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("oil CSV error %d", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, unavailable(domain.SourceOil, fmt.Errorf("download %s: %w", p.url, err))
	}

	records, err := parseOilCSV(body, start, end)
	if err != nil {
		return nil, unavailable(domain.SourceOil, err)
	}
	return records, nil
}

// parseOilCSV reads the {Date, Price} extract. Header names are matched
// case-insensitively so upstream formatting changes do not break the feed.
func parseOilCSV(body []byte, start, end string) ([]domain.OilRecord, error) {
	r := csv.NewReader(strings.NewReader(string(body)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	dateIdx, priceIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateIdx = i
		case "price", "price_usd":
			priceIdx = i
		}
	}
	if dateIdx < 0 || priceIdx < 0 {
		return nil, fmt.Errorf("CSV missing date/price columns: %v", header)
	}

	var records []domain.OilRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		if len(row) <= dateIdx || len(row) <= priceIdx {
			continue
		}

		date := strings.TrimSpace(row[dateIdx])
		if date < start || date > end {
			continue
		}
		records = append(records, domain.OilRecord{
			Date:  date,
			Price: strings.TrimSpace(row[priceIdx]),
		})
	}
	return records, nil
}
