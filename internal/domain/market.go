package domain

// CryptoAsset is one row of the crypto_assets metadata snapshot.
// SupplyUtilization and DistanceFromATH are derived by the transform
// layer; nil when the inputs needed to compute them are missing.
type CryptoAsset struct {
	ID                string   `json:"id"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	CurrentPrice      float64  `json:"current_price"`
	MarketCap         float64  `json:"market_cap"`
	MarketCapRank     *int     `json:"market_cap_rank"`
	TotalVolume       float64  `json:"total_volume"`
	CirculatingSupply float64  `json:"circulating_supply"`
	TotalSupply       *float64 `json:"total_supply"`
	ATH               float64  `json:"ath"`
	ATL               float64  `json:"atl"`
	SupplyUtilization *float64 `json:"supply_utilization"`
	DistanceFromATH   *float64 `json:"distance_from_ath"`
	LastUpdated       string   `json:"last_updated"` // ISO calendar date
}

// CryptoDailyPrice is one row of crypto_prices: one price per coin per day.
type CryptoDailyPrice struct {
	CoinID   string  `json:"coin_id"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Date     string  `json:"date"`
	PriceUSD float64 `json:"price_usd"`
}

// OilDailyPrice is one row of oil_prices (WTI daily close).
type OilDailyPrice struct {
	Date     string  `json:"date"`
	PriceUSD float64 `json:"price_usd"`
}

// IndexDailyBar is one OHLCV row of index_prices for a stock index ticker.
type IndexDailyBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
	Ticker string  `json:"ticker"`
}

// Source names used in reports and errors.
const (
	SourceCoinGecko = "coingecko"
	SourceOil       = "oil-csv"
	SourceYahoo     = "yahoo-finance"
)

// Table names owned by the load layer.
const (
	TableCryptoAssets = "crypto_assets"
	TableCryptoPrices = "crypto_prices"
	TableOilPrices    = "oil_prices"
	TableIndexPrices  = "index_prices"
)

// IndexTickerNames maps the tracked stock index tickers to display names.
var IndexTickerNames = map[string]string{
	"^GSPC": "S&P 500",
	"^IXIC": "NASDAQ Composite",
	"^NSEI": "NIFTY 50",
}

// IndexTickers lists the tracked tickers in a stable order.
var IndexTickers = []string{"^GSPC", "^IXIC", "^NSEI"}
