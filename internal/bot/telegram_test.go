package bot

import (
	"strings"
	"testing"
	"time"

	"crossmarket/internal/query"
)

func TestFormatCatalogGroupsByCategory(t *testing.T) {
	defs := []query.Definition{
		{Name: "oil_yearly_average", Category: query.CategoryOil},
		{Name: "oil_avg_price", Category: query.CategoryOil, Params: []string{"start_date", "end_date"}},
		{Name: "daily_snapshot", Category: query.CategoryCrossMarket, Params: []string{"start_date", "end_date"}},
	}

	out := formatCatalog(defs)
	if !strings.Contains(out, "oil_prices:") || !strings.Contains(out, "cross_market:") {
		t.Fatalf("missing category headers:\n%s", out)
	}
	if !strings.Contains(out, "oil_avg_price (start_date, end_date)") {
		t.Fatalf("params not listed:\n%s", out)
	}
}

func TestFormatCatalogEmpty(t *testing.T) {
	out := formatCatalog(nil)
	if !strings.Contains(out, "Categories:") {
		t.Fatalf("empty catalog should list categories:\n%s", out)
	}
}

func TestFormatResult(t *testing.T) {
	result := &query.Result{
		Name:    "oil_yearly_average",
		Columns: []string{"year", "avg_price_usd"},
		Rows: [][]any{
			{2020, 39.16},
			{2021, 68.1},
		},
	}

	out := formatResult(result)
	if !strings.Contains(out, "year | avg_price_usd") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "2021 | 68.10") {
		t.Fatalf("floats should render with two decimals:\n%s", out)
	}
}

func TestFormatResultEmptyAndNil(t *testing.T) {
	out := formatResult(&query.Result{Name: "x", Columns: []string{"a"}})
	if !strings.Contains(out, "(no rows)") {
		t.Fatalf("empty result not marked:\n%s", out)
	}

	out = formatResult(&query.Result{Name: "x", Columns: []string{"a"}, Rows: [][]any{{nil}}})
	if !strings.Contains(out, "-") {
		t.Fatalf("nil cell should render as dash:\n%s", out)
	}
}

func TestDateWindow(t *testing.T) {
	start, end := dateWindow(90)

	startDay, err := time.Parse("2006-01-02", start)
	if err != nil {
		t.Fatalf("bad start date %q: %v", start, err)
	}
	endDay, err := time.Parse("2006-01-02", end)
	if err != nil {
		t.Fatalf("bad end date %q: %v", end, err)
	}
	if got := endDay.Sub(startDay); got < 89*24*time.Hour || got > 91*24*time.Hour {
		t.Fatalf("window spans %v, want about 90 days", got)
	}
}

func TestFormatResultTruncates(t *testing.T) {
	rows := make([][]any, botMaxRows+10)
	for i := range rows {
		rows[i] = []any{i}
	}
	out := formatResult(&query.Result{Name: "x", Columns: []string{"n"}, Rows: rows})
	if !strings.Contains(out, "rows total") {
		t.Fatalf("long result should be truncated:\n%s", out)
	}
	if strings.Count(out, "\n") > botMaxRows+3 {
		t.Fatalf("too many lines in reply:\n%s", out)
	}
}
