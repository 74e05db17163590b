// Package query holds the fixed catalog of analytical queries and the
// runner that executes them. The catalog is the only SQL the read
// surfaces ever see; callers pick a query by name and supply values for
// its declared parameters, nothing else.
package query

import "sort"

// Categories group the catalog the way the data is organized: one per
// table plus the cross-market joins.
const (
	CategoryAssets      = "crypto_assets"
	CategoryCrypto      = "crypto_prices"
	CategoryOil         = "oil_prices"
	CategoryIndex       = "index_prices"
	CategoryCrossMarket = "cross_market"
)

// Definition is one catalog entry. Params lists the required parameter
// names in positional order; SQL references them as $1..$n in the same
// order.
type Definition struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Title    string   `json:"title"`
	Params   []string `json:"params,omitempty"`
	SQL      string   `json:"-"`
}

var catalog = []Definition{
	// --- crypto_assets ---
	{
		Name:     "top_assets_by_market_cap",
		Category: CategoryAssets,
		Title:    "Top 10 assets by market cap",
		SQL: `SELECT id, symbol, name, current_price, market_cap, market_cap_rank
FROM crypto_assets
ORDER BY market_cap DESC NULLS LAST
LIMIT 10`,
	},
	{
		Name:     "high_supply_utilization",
		Category: CategoryAssets,
		Title:    "Assets with more than 90% of total supply circulating",
		SQL: `SELECT id, symbol, name, circulating_supply, total_supply,
       ROUND(supply_utilization::numeric, 4) AS supply_utilization
FROM crypto_assets
WHERE supply_utilization > 0.9
ORDER BY supply_utilization DESC`,
	},
	{
		Name:     "near_all_time_high",
		Category: CategoryAssets,
		Title:    "Assets trading within 10% of their all-time high",
		SQL: `SELECT id, symbol, name, current_price, ath,
       ROUND(distance_from_ath::numeric, 4) AS distance_from_ath
FROM crypto_assets
WHERE distance_from_ath > -0.1
ORDER BY distance_from_ath DESC`,
	},
	{
		Name:     "avg_rank_high_volume",
		Category: CategoryAssets,
		Title:    "Average market cap rank of assets with volume above one billion",
		SQL: `SELECT ROUND(AVG(market_cap_rank)::numeric, 2) AS avg_rank,
       COUNT(*) AS assets
FROM crypto_assets
WHERE total_volume > 1e9`,
	},
	{
		Name:     "latest_updated_asset",
		Category: CategoryAssets,
		Title:    "Most recently refreshed asset",
		SQL: `SELECT id, symbol, name, last_updated
FROM crypto_assets
ORDER BY last_updated DESC, market_cap_rank ASC NULLS LAST
LIMIT 1`,
	},

	// --- crypto_prices ---
	{
		Name:     "btc_highest_price_365d",
		Category: CategoryCrypto,
		Title:    "Bitcoin's highest daily price in the stored year of history",
		SQL: `SELECT date, price_usd
FROM crypto_prices
WHERE coin_id = 'bitcoin'
ORDER BY price_usd DESC
LIMIT 1`,
	},
	{
		Name:     "eth_avg_price_365d",
		Category: CategoryCrypto,
		Title:    "Ethereum's average daily price over the stored history",
		SQL: `SELECT ROUND(AVG(price_usd)::numeric, 2) AS avg_price_usd,
       COUNT(*) AS days
FROM crypto_prices
WHERE coin_id = 'ethereum'`,
	},
	{
		Name:     "btc_january_2025_trend",
		Category: CategoryCrypto,
		Title:    "Bitcoin daily prices through January 2025",
		SQL: `SELECT date, price_usd
FROM crypto_prices
WHERE coin_id = 'bitcoin'
  AND date BETWEEN '2025-01-01' AND '2025-01-31'
ORDER BY date`,
	},
	{
		Name:     "top_avg_price_coin_365d",
		Category: CategoryCrypto,
		Title:    "Coin with the highest average daily price",
		SQL: `SELECT coin_id, symbol, name,
       ROUND(AVG(price_usd)::numeric, 2) AS avg_price_usd
FROM crypto_prices
GROUP BY coin_id, symbol, name
ORDER BY avg_price_usd DESC
LIMIT 1`,
	},
	{
		Name:     "btc_sep_yoy_change",
		Category: CategoryCrypto,
		Title:    "Bitcoin September average, this year versus last",
		SQL: `WITH sep AS (
    SELECT EXTRACT(YEAR FROM date)::INT AS year,
           AVG(price_usd) AS avg_price
    FROM crypto_prices
    WHERE coin_id = 'bitcoin'
      AND EXTRACT(MONTH FROM date) = 9
    GROUP BY 1
)
SELECT cur.year,
       ROUND(cur.avg_price::numeric, 2) AS avg_price,
       ROUND(prev.avg_price::numeric, 2) AS prior_year_avg,
       ROUND(((cur.avg_price - prev.avg_price) / prev.avg_price * 100)::numeric, 2) AS change_pct
FROM sep cur
JOIN sep prev ON prev.year = cur.year - 1
ORDER BY cur.year DESC
LIMIT 1`,
	},
	{
		Name:     "available_coins",
		Category: CategoryCrypto,
		Title:    "Coins with stored daily history",
		SQL: `SELECT coin_id, symbol, name,
       MIN(date) AS first_date,
       MAX(date) AS last_date,
       COUNT(*) AS days
FROM crypto_prices
GROUP BY coin_id, symbol, name
ORDER BY coin_id`,
	},
	{
		Name:     "coin_price_series",
		Category: CategoryCrypto,
		Title:    "Daily price series for one coin over a date range",
		Params:   []string{"coin_id", "start_date", "end_date"},
		SQL: `SELECT date, price_usd
FROM crypto_prices
WHERE coin_id = $1
  AND date BETWEEN $2::date AND $3::date
ORDER BY date`,
	},
	{
		Name:     "btc_avg_price",
		Category: CategoryCrypto,
		Title:    "Bitcoin average price over a date range",
		Params:   []string{"start_date", "end_date"},
		SQL: `SELECT ROUND(AVG(price_usd)::numeric, 2) AS avg_price_usd,
       COUNT(*) AS days
FROM crypto_prices
WHERE coin_id = 'bitcoin'
  AND date BETWEEN $1::date AND $2::date`,
	},

	// --- oil_prices ---
	{
		Name:     "oil_highest_price_5y",
		Category: CategoryOil,
		Title:    "Highest WTI price in the last five years",
		SQL: `SELECT date, price_usd
FROM oil_prices
WHERE date >= CURRENT_DATE - INTERVAL '5 years'
ORDER BY price_usd DESC
LIMIT 1`,
	},
	{
		Name:     "oil_yearly_average",
		Category: CategoryOil,
		Title:    "Average WTI price per year",
		SQL: `SELECT EXTRACT(YEAR FROM date)::INT AS year,
       ROUND(AVG(price_usd)::numeric, 2) AS avg_price_usd,
       COUNT(*) AS trading_days
FROM oil_prices
GROUP BY 1
ORDER BY 1`,
	},
	{
		Name:     "oil_covid_crash",
		Category: CategoryOil,
		Title:    "WTI prices through the April 2020 crash",
		SQL: `SELECT date, price_usd
FROM oil_prices
WHERE date BETWEEN '2020-03-01' AND '2020-05-31'
ORDER BY price_usd ASC
LIMIT 10`,
	},
	{
		Name:     "oil_lowest_price_10y",
		Category: CategoryOil,
		Title:    "Lowest WTI price in the last decade",
		SQL: `SELECT date, price_usd
FROM oil_prices
WHERE date >= CURRENT_DATE - INTERVAL '10 years'
ORDER BY price_usd ASC
LIMIT 1`,
	},
	{
		Name:     "oil_yearly_volatility",
		Category: CategoryOil,
		Title:    "Yearly WTI price range and spread",
		SQL: `SELECT EXTRACT(YEAR FROM date)::INT AS year,
       ROUND(MIN(price_usd)::numeric, 2) AS low,
       ROUND(MAX(price_usd)::numeric, 2) AS high,
       ROUND((MAX(price_usd) - MIN(price_usd))::numeric, 2) AS spread
FROM oil_prices
GROUP BY 1
ORDER BY spread DESC`,
	},
	{
		Name:     "oil_avg_price",
		Category: CategoryOil,
		Title:    "Average WTI price over a date range",
		Params:   []string{"start_date", "end_date"},
		SQL: `SELECT ROUND(AVG(price_usd)::numeric, 2) AS avg_price_usd,
       COUNT(*) AS trading_days
FROM oil_prices
WHERE date BETWEEN $1::date AND $2::date`,
	},

	// --- index_prices ---
	{
		Name:     "index_recent_bars",
		Category: CategoryIndex,
		Title:    "Most recent 30 bars for one ticker",
		Params:   []string{"ticker"},
		SQL: `SELECT date, open, high, low, close, volume
FROM index_prices
WHERE ticker = $1
ORDER BY date DESC
LIMIT 30`,
	},
	{
		Name:     "nasdaq_highest_close",
		Category: CategoryIndex,
		Title:    "NASDAQ's highest close on record",
		SQL: `SELECT date, close
FROM index_prices
WHERE ticker = '^IXIC'
ORDER BY close DESC
LIMIT 1`,
	},
	{
		Name:     "sp500_intraday_range_top5",
		Category: CategoryIndex,
		Title:    "S&P 500 sessions with the widest intraday range",
		SQL: `SELECT date, high, low,
       ROUND((high - low)::numeric, 2) AS intraday_range
FROM index_prices
WHERE ticker = '^GSPC'
ORDER BY intraday_range DESC
LIMIT 5`,
	},
	{
		Name:     "monthly_avg_close_all_tickers",
		Category: CategoryIndex,
		Title:    "Monthly average close per index",
		SQL: `SELECT ticker,
       to_char(date, 'YYYY-MM') AS month,
       ROUND(AVG(close)::numeric, 2) AS avg_close
FROM index_prices
GROUP BY ticker, 2
ORDER BY ticker, month`,
	},
	{
		Name:     "nifty_avg_volume_2024",
		Category: CategoryIndex,
		Title:    "NIFTY 50 average daily volume during 2024",
		SQL: `SELECT ROUND(AVG(volume)::numeric, 0) AS avg_volume,
       COUNT(*) AS sessions
FROM index_prices
WHERE ticker = '^NSEI'
  AND EXTRACT(YEAR FROM date) = 2024`,
	},
	{
		Name:     "index_avg_close",
		Category: CategoryIndex,
		Title:    "Average close for one ticker over a date range",
		Params:   []string{"ticker", "start_date", "end_date"},
		SQL: `SELECT ROUND(AVG(close)::numeric, 2) AS avg_close,
       COUNT(*) AS sessions
FROM index_prices
WHERE ticker = $1
  AND date BETWEEN $2::date AND $3::date`,
	},

	// --- cross-market ---
	{
		Name:     "btc_vs_oil_avg_2025",
		Category: CategoryCrossMarket,
		Title:    "Bitcoin versus WTI averages for 2025",
		SQL: `SELECT ROUND(AVG(c.price_usd)::numeric, 2) AS btc_avg,
       ROUND(AVG(o.price_usd)::numeric, 2) AS oil_avg
FROM crypto_prices c
JOIN oil_prices o ON o.date = c.date
WHERE c.coin_id = 'bitcoin'
  AND EXTRACT(YEAR FROM c.date) = 2025`,
	},
	{
		Name:     "btc_vs_sp500_2025",
		Category: CategoryCrossMarket,
		Title:    "Bitcoin and S&P 500 daily closes for 2025",
		SQL: `SELECT c.date, c.price_usd AS btc_price, i.close AS sp500_close
FROM crypto_prices c
JOIN index_prices i ON i.date = c.date AND i.ticker = '^GSPC'
WHERE c.coin_id = 'bitcoin'
  AND EXTRACT(YEAR FROM c.date) = 2025
ORDER BY c.date`,
	},
	{
		Name:     "eth_vs_nasdaq_2025",
		Category: CategoryCrossMarket,
		Title:    "Ethereum and NASDAQ daily closes for 2025",
		SQL: `SELECT c.date, c.price_usd AS eth_price, i.close AS nasdaq_close
FROM crypto_prices c
JOIN index_prices i ON i.date = c.date AND i.ticker = '^IXIC'
WHERE c.coin_id = 'ethereum'
  AND EXTRACT(YEAR FROM c.date) = 2025
ORDER BY c.date`,
	},
	{
		Name:     "oil_spikes_vs_btc",
		Category: CategoryCrossMarket,
		Title:    "Bitcoin on days WTI jumped more than 3% over the prior session",
		SQL: `WITH oil_moves AS (
    SELECT o1.date,
           o1.price_usd,
           (o1.price_usd - o0.price_usd) / o0.price_usd * 100 AS oil_chg_pct
    FROM oil_prices o1
    JOIN oil_prices o0
      ON o0.date = (SELECT MAX(date) FROM oil_prices WHERE date < o1.date)
)
SELECT m.date,
       ROUND(m.oil_chg_pct::numeric, 2) AS oil_chg_pct,
       m.price_usd AS oil_price,
       c.price_usd AS btc_price
FROM oil_moves m
JOIN crypto_prices c ON c.date = m.date AND c.coin_id = 'bitcoin'
WHERE m.oil_chg_pct > 3
ORDER BY m.date`,
	},
	{
		Name:     "top_coins_vs_nifty_2025",
		Category: CategoryCrossMarket,
		Title:    "Stored coins alongside NIFTY 50 closes for 2025",
		SQL: `SELECT c.date, c.coin_id, c.price_usd, i.close AS nifty_close
FROM crypto_prices c
JOIN index_prices i ON i.date = c.date AND i.ticker = '^NSEI'
WHERE EXTRACT(YEAR FROM c.date) = 2025
ORDER BY c.date, c.coin_id`,
	},
	{
		Name:     "sp500_vs_oil_recent",
		Category: CategoryCrossMarket,
		Title:    "S&P 500 and WTI on the 30 most recent shared sessions",
		SQL: `SELECT i.date, i.close AS sp500_close, o.price_usd AS oil_price
FROM index_prices i
JOIN oil_prices o ON o.date = i.date
WHERE i.ticker = '^GSPC'
ORDER BY i.date DESC
LIMIT 30`,
	},
	{
		Name:     "btc_oil_correlation_series",
		Category: CategoryCrossMarket,
		Title:    "Aligned Bitcoin and WTI series for correlation work",
		SQL: `SELECT c.date, c.price_usd AS btc_price, o.price_usd AS oil_price
FROM crypto_prices c
JOIN oil_prices o ON o.date = c.date
WHERE c.coin_id = 'bitcoin'
ORDER BY c.date`,
	},
	{
		Name:     "eth_nasdaq_trend",
		Category: CategoryCrossMarket,
		Title:    "Monthly Ethereum and NASDAQ averages",
		SQL: `SELECT to_char(c.date, 'YYYY-MM') AS month,
       ROUND(AVG(c.price_usd)::numeric, 2) AS eth_avg,
       ROUND(AVG(i.close)::numeric, 2) AS nasdaq_avg
FROM crypto_prices c
JOIN index_prices i ON i.date = c.date AND i.ticker = '^IXIC'
WHERE c.coin_id = 'ethereum'
GROUP BY 1
ORDER BY 1`,
	},
	{
		Name:     "coins_vs_indices_2024",
		Category: CategoryCrossMarket,
		Title:    "2024 averages for every stored coin against every index",
		SQL: `SELECT c.coin_id, i.ticker,
       ROUND(AVG(c.price_usd)::numeric, 2) AS coin_avg,
       ROUND(AVG(i.close)::numeric, 2) AS index_avg
FROM crypto_prices c
JOIN index_prices i ON i.date = c.date
WHERE EXTRACT(YEAR FROM c.date) = 2024
GROUP BY c.coin_id, i.ticker
ORDER BY c.coin_id, i.ticker`,
	},
	{
		Name:     "btc_oil_sp500_daily",
		Category: CategoryCrossMarket,
		Title:    "Bitcoin, WTI, and S&P 500 on shared sessions",
		SQL: `SELECT c.date,
       c.price_usd AS btc_price,
       o.price_usd AS oil_price,
       i.close AS sp500_close
FROM crypto_prices c
JOIN oil_prices o ON o.date = c.date
JOIN index_prices i ON i.date = c.date AND i.ticker = '^GSPC'
WHERE c.coin_id = 'bitcoin'
ORDER BY c.date`,
	},
	{
		Name:     "daily_snapshot",
		Category: CategoryCrossMarket,
		Title:    "Bitcoin, WTI, S&P 500, and NIFTY on dates all four traded",
		Params:   []string{"start_date", "end_date"},
		SQL: `SELECT c.date,
       c.price_usd AS bitcoin_price,
       o.price_usd AS oil_price,
       sp.close AS sp500_close,
       ni.close AS nifty_close
FROM crypto_prices c
JOIN oil_prices o ON o.date = c.date
JOIN index_prices sp ON sp.date = c.date AND sp.ticker = '^GSPC'
JOIN index_prices ni ON ni.date = c.date AND ni.ticker = '^NSEI'
WHERE c.coin_id = 'bitcoin'
  AND c.date BETWEEN $1::date AND $2::date
ORDER BY c.date`,
	},
}

var byName = func() map[string]Definition {
	m := make(map[string]Definition, len(catalog))
	for _, d := range catalog {
		m[d.Name] = d
	}
	return m
}()

// List returns the catalog, optionally filtered by category, sorted by
// category then name.
func List(category string) []Definition {
	out := make([]Definition, 0, len(catalog))
	for _, d := range catalog {
		if category == "" || d.Category == category {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Lookup finds a catalog entry by name.
func Lookup(name string) (Definition, bool) {
	d, ok := byName[name]
	return d, ok
}

// Categories lists the catalog categories in display order.
func Categories() []string {
	return []string{CategoryAssets, CategoryCrypto, CategoryOil, CategoryIndex, CategoryCrossMarket}
}
