package dto

type StockOHLCV struct {
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

type StockData struct {
	Symbol      string       `json:"symbol"`
	Name        string       `json:"name"`
	Currency    string       `json:"currency"`
	MarketPrice float64      `json:"market_price"`
	Range       string       `json:"range"`
	Interval    string       `json:"interval"`
	OHLCV       []StockOHLCV `json:"ohlc"`
}

type GetStockDataParam struct {
	StockCode string     `json:"stock_code"`
	Market    MarketType `json:"market_type"`
	Range     string     `json:"range"`
	Interval  string     `json:"interval"`
}

// StockInfo is the descriptive part of an instrument fed into the prompt.
type StockInfo struct {
	Code     string     `json:"stock_code"`
	Name     string     `json:"stock_name"`
	Market   MarketType `json:"market_type"`
	Sector   string     `json:"sector,omitempty"`
	Concepts []string   `json:"concepts,omitempty"`
}

// Yahoo Finance API Response
type YahooFinanceResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				ExchangeName       string  `json:"exchangeName"`
				LongName           string  `json:"longName"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}
