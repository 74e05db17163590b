package transform

import (
	"reflect"
	"testing"

	"crossmarket/internal/domain"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestNormalizeDate(t *testing.T) {
	tests := map[string]struct {
		out string
		ok  bool
	}{
		"2025-01-31":               {"2025-01-31", true},
		"2025-01-31T12:30:00Z":     {"2025-01-31", true},
		"2025-01-31 12:30:00":      {"2025-01-31", true},
		" 2025-01-31 ":             {"2025-01-31", true},
		"31/01/2025":               {"", false},
		"not a date":               {"", false},
		"":                         {"", false},
		"2025-01-31T23:59:59.999Z": {"2025-01-31", true},
	}
	for in, expected := range tests {
		got, ok := NormalizeDate(in)
		if ok != expected.ok || got != expected.out {
			t.Fatalf("NormalizeDate(%q) = (%q, %v), expected (%q, %v)", in, got, ok, expected.out, expected.ok)
		}
	}
}

func TestCleanAssetsDerivedColumns(t *testing.T) {
	records := []domain.AssetRecord{
		{
			ID: "bitcoin", Symbol: "btc", Name: "Bitcoin",
			CurrentPrice: 90000, ATH: 100000,
			CirculatingSupply: 19_000_000, TotalSupply: fptr(21_000_000),
			MarketCapRank: iptr(1), LastUpdated: "2025-06-01T08:00:00Z",
		},
		{
			ID: "opencoin", Symbol: "opn", Name: "OpenCoin",
			CurrentPrice: 2, ATH: 0,
			CirculatingSupply: 500, TotalSupply: nil,
			LastUpdated: "2025-06-01",
		},
	}

	assets, stats := CleanAssets(records)
	if stats.Dropped != 0 || stats.Out != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	btc := assets[0]
	if btc.ID != "bitcoin" || btc.Symbol != "BTC" || btc.LastUpdated != "2025-06-01" {
		t.Fatalf("unexpected btc row: %+v", btc)
	}
	if btc.SupplyUtilization == nil || *btc.SupplyUtilization != 19.0/21.0 {
		t.Fatalf("unexpected supply utilization: %v", btc.SupplyUtilization)
	}
	if btc.DistanceFromATH == nil || *btc.DistanceFromATH != (90000.0-100000.0)/100000.0 {
		t.Fatalf("unexpected distance from ATH: %v", btc.DistanceFromATH)
	}

	opn := assets[1]
	if opn.SupplyUtilization != nil {
		t.Fatalf("nil total supply must yield nil utilization, got %v", *opn.SupplyUtilization)
	}
	if opn.DistanceFromATH != nil {
		t.Fatalf("zero ATH must yield nil distance, got %v", *opn.DistanceFromATH)
	}
}

func TestCleanAssetsDropsAndDedupes(t *testing.T) {
	records := []domain.AssetRecord{
		{ID: "", LastUpdated: "2025-06-01"},
		{ID: "eth", Name: "first", LastUpdated: "2025-06-01"},
		{ID: "eth", Name: "second", LastUpdated: "2025-06-01"},
		{ID: "bad-date", LastUpdated: "soon"},
	}

	assets, stats := CleanAssets(records)
	if stats.In != 4 || stats.Dropped != 3 || stats.Out != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if assets[0].Name != "second" {
		t.Fatalf("last write should win, got %q", assets[0].Name)
	}
}

func TestCleanCryptoPricesLastWriteWins(t *testing.T) {
	rows := []domain.CryptoDailyPrice{
		{CoinID: "bitcoin", Symbol: "btc", Date: "2025-01-02T00:00:00Z", PriceUSD: 100},
		{CoinID: "bitcoin", Symbol: "btc", Date: "2025-01-02", PriceUSD: 105},
		{CoinID: "bitcoin", Symbol: "btc", Date: "2025-01-01", PriceUSD: 95},
		{CoinID: "", Date: "2025-01-01", PriceUSD: 1},
	}

	out, stats := CleanCryptoPrices(rows)
	if stats.Dropped != 2 || stats.Out != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if out[0].Date != "2025-01-01" || out[1].Date != "2025-01-02" {
		t.Fatalf("output not sorted by date: %+v", out)
	}
	if out[1].PriceUSD != 105 {
		t.Fatalf("last write should win, got %f", out[1].PriceUSD)
	}
	if out[0].Symbol != "BTC" {
		t.Fatalf("symbol not uppercased: %q", out[0].Symbol)
	}
}

func TestCleanOilPrices(t *testing.T) {
	records := []domain.OilRecord{
		{Date: "2025-01-01", Price: "71.25"},
		{Date: "2025-01-02", Price: "n/a"},
		{Date: "someday", Price: "70.00"},
		{Date: "2025-01-01", Price: "72.00"},
	}

	out, stats := CleanOilPrices(records)
	if stats.In != 4 || stats.Dropped != 3 || stats.Out != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if out[0].Date != "2025-01-01" || out[0].PriceUSD != 72.00 {
		t.Fatalf("unexpected row: %+v", out[0])
	}
}

func TestCleanIndexBars(t *testing.T) {
	records := []domain.IndexBarRecord{
		{Date: "2025-01-02", Open: fptr(10), High: fptr(12), Low: fptr(9), Close: fptr(11), Volume: fptr(1000), Ticker: "^GSPC"},
		{Date: "2025-01-03", Open: fptr(11), High: fptr(10), Low: fptr(12), Close: fptr(11), Volume: fptr(1000), Ticker: "^GSPC"},
		{Date: "2025-01-06", Open: nil, High: fptr(12), Low: fptr(9), Close: fptr(11), Volume: fptr(1000), Ticker: "^GSPC"},
		{Date: "2025-01-07", Open: fptr(10), High: fptr(12), Low: fptr(9), Close: fptr(11), Volume: nil, Ticker: "^GSPC"},
	}

	out, stats := CleanIndexBars(records)
	if stats.Dropped != 2 || stats.Out != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if out[0].Date != "2025-01-02" || out[0].Volume != 1000 {
		t.Fatalf("unexpected bar: %+v", out[0])
	}
	if out[1].Date != "2025-01-07" || out[1].Volume != 0 {
		t.Fatalf("nil volume should load as zero: %+v", out[1])
	}
}

func TestCleaningIsDeterministic(t *testing.T) {
	records := []domain.AssetRecord{
		{ID: "bitcoin", CurrentPrice: 90000, ATH: 100000, LastUpdated: "2025-06-01"},
		{ID: "ethereum", CurrentPrice: 3000, ATH: 4800, LastUpdated: "2025-06-01"},
		{ID: "solana", CurrentPrice: 150, ATH: 260, LastUpdated: "2025-06-01"},
	}

	first, firstStats := CleanAssets(records)
	second, secondStats := CleanAssets(records)

	if !reflect.DeepEqual(firstStats, secondStats) {
		t.Fatalf("stats differ across runs: %+v vs %+v", firstStats, secondStats)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("output differs across runs")
	}
}
