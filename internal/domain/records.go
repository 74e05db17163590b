package domain

// Raw adapter output. Adapters only parse the wire payload into these
// records; cleaning, date normalization, and derived metrics happen in
// the transform layer.

// AssetRecord is one entry of the CoinGecko /coins/markets response.
type AssetRecord struct {
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
	LastUpdated       string   `json:"last_updated"` // RFC3339 timestamp as sent
}

// OilRecord is one data row of the WTI daily CSV, fields still unparsed.
type OilRecord struct {
	Date  string
	Price string
}

// IndexBarRecord is one daily bar from the Yahoo chart payload. Quote
// fields are nullable on the wire; nil entries are dropped downstream.
type IndexBarRecord struct {
	Date   string
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume *float64
	Ticker string
}
