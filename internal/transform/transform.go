// Package transform holds the pure cleaning step between the source
// adapters and the load layer: canonical dates, null-row elimination,
// natural-key dedupe, and derived metrics. Every function is
// deterministic and side-effect-free; unparseable rows are dropped and
// counted, never fatal.
package transform

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"crossmarket/internal/domain"
)

// Stats reports what one cleaning pass did to its input.
type Stats struct {
	In      int `json:"in"`
	Dropped int `json:"dropped"`
	Out     int `json:"out"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// NormalizeDate parses a date-like string and reformats it as an ISO
// calendar date. ok is false when no known layout matches.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}

// CleanAssets drops rows without an id or with an unparseable
// last_updated, deduplicates by id (last write wins), and computes the
// derived supply_utilization and distance_from_ath columns.
func CleanAssets(records []domain.AssetRecord) ([]domain.CryptoAsset, Stats) {
	stats := Stats{In: len(records)}

	byID := make(map[string]domain.CryptoAsset, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			stats.Dropped++
			continue
		}
		date, ok := NormalizeDate(rec.LastUpdated)
		if !ok {
			stats.Dropped++
			continue
		}

		asset := domain.CryptoAsset{
			ID:                id,
			Symbol:            strings.ToUpper(strings.TrimSpace(rec.Symbol)),
			Name:              rec.Name,
			CurrentPrice:      rec.CurrentPrice,
			MarketCap:         rec.MarketCap,
			MarketCapRank:     rec.MarketCapRank,
			TotalVolume:       rec.TotalVolume,
			CirculatingSupply: rec.CirculatingSupply,
			TotalSupply:       rec.TotalSupply,
			ATH:               rec.ATH,
			ATL:               rec.ATL,
			LastUpdated:       date,
		}
		asset.SupplyUtilization = supplyUtilization(rec.CirculatingSupply, rec.TotalSupply)
		asset.DistanceFromATH = distanceFromATH(rec.CurrentPrice, rec.ATH)

		if _, seen := byID[id]; seen {
			stats.Dropped++
		}
		byID[id] = asset
	}

	out := make([]domain.CryptoAsset, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	stats.Out = len(out)
	return out, stats
}

// supplyUtilization is circulating/total supply, nil when total supply
// is unknown or zero.
func supplyUtilization(circulating float64, total *float64) *float64 {
	if total == nil || *total == 0 {
		return nil
	}
	v := circulating / *total
	return &v
}

// distanceFromATH is (current - ath)/ath, nil when no ATH is known.
func distanceFromATH(current, ath float64) *float64 {
	if ath == 0 {
		return nil
	}
	v := (current - ath) / ath
	return &v
}

// CleanCryptoPrices normalizes dates, drops rows missing the natural key,
// and deduplicates by (coin_id, date) with last write winning.
func CleanCryptoPrices(rows []domain.CryptoDailyPrice) ([]domain.CryptoDailyPrice, Stats) {
	stats := Stats{In: len(rows)}

	type key struct{ coin, date string }
	byKey := make(map[key]domain.CryptoDailyPrice, len(rows))
	for _, row := range rows {
		coin := strings.TrimSpace(row.CoinID)
		if coin == "" {
			stats.Dropped++
			continue
		}
		date, ok := NormalizeDate(row.Date)
		if !ok {
			stats.Dropped++
			continue
		}
		row.CoinID = coin
		row.Symbol = strings.ToUpper(row.Symbol)
		row.Date = date

		k := key{coin, date}
		if _, seen := byKey[k]; seen {
			stats.Dropped++
		}
		byKey[k] = row
	}

	out := make([]domain.CryptoDailyPrice, 0, len(byKey))
	for _, row := range byKey {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CoinID != out[j].CoinID {
			return out[i].CoinID < out[j].CoinID
		}
		return out[i].Date < out[j].Date
	})

	stats.Out = len(out)
	return out, stats
}

// CleanOilPrices parses the raw CSV fields, dropping rows whose date or
// price does not parse, and deduplicates by date.
func CleanOilPrices(records []domain.OilRecord) ([]domain.OilDailyPrice, Stats) {
	stats := Stats{In: len(records)}

	byDate := make(map[string]domain.OilDailyPrice, len(records))
	for _, rec := range records {
		date, ok := NormalizeDate(rec.Date)
		if !ok {
			stats.Dropped++
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec.Price), 64)
		if err != nil {
			stats.Dropped++
			continue
		}

		if _, seen := byDate[date]; seen {
			stats.Dropped++
		}
		byDate[date] = domain.OilDailyPrice{Date: date, PriceUSD: price}
	}

	out := make([]domain.OilDailyPrice, 0, len(byDate))
	for _, row := range byDate {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	stats.Out = len(out)
	return out, stats
}

// CleanIndexBars drops bars with null quote fields or an impossible
// high/low relationship and deduplicates by (date, ticker).
func CleanIndexBars(records []domain.IndexBarRecord) ([]domain.IndexDailyBar, Stats) {
	stats := Stats{In: len(records)}

	type key struct{ date, ticker string }
	byKey := make(map[key]domain.IndexDailyBar, len(records))
	for _, rec := range records {
		date, ok := NormalizeDate(rec.Date)
		if !ok || rec.Ticker == "" {
			stats.Dropped++
			continue
		}
		if rec.Open == nil || rec.High == nil || rec.Low == nil || rec.Close == nil {
			stats.Dropped++
			continue
		}
		if *rec.High < *rec.Low || *rec.Low < 0 {
			stats.Dropped++
			continue
		}

		var volume int64
		if rec.Volume != nil {
			volume = int64(*rec.Volume)
		}

		k := key{date, rec.Ticker}
		if _, seen := byKey[k]; seen {
			stats.Dropped++
		}
		byKey[k] = domain.IndexDailyBar{
			Date:   date,
			Open:   *rec.Open,
			High:   *rec.High,
			Low:    *rec.Low,
			Close:  *rec.Close,
			Volume: volume,
			Ticker: rec.Ticker,
		}
	}

	out := make([]domain.IndexDailyBar, 0, len(byKey))
	for _, bar := range byKey {
		out = append(out, bar)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Date < out[j].Date
	})

	stats.Out = len(out)
	return out, stats
}
