package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang-stock-ai/config"
	"golang-stock-ai/internal/dto"
	"golang-stock-ai/pkg/common"
	"golang-stock-ai/pkg/httpclient"
	"golang-stock-ai/pkg/logger"
	"golang-stock-ai/pkg/utils"

	"golang.org/x/time/rate"
)

type YahooFinanceRepository interface {
	Get(ctx context.Context, param dto.GetStockDataParam) (*dto.StockData, error)
}

type yahooFinanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	mu             sync.Mutex
	loc            *time.Location
}

// NewYahooFinanceRepository creates a new instance of yahooFinanceRepository.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) YahooFinanceRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.YahooFinance.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &yahooFinanceRepository{
		httpClient:     httpclient.New(log, cfg.YahooFinance.BaseURL, cfg.YahooFinance.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		loc:            utils.GetMarketLocation(cfg.Market.TimeZone),
	}
}

// YahooSymbol maps an exchange code to the ticker Yahoo Finance expects.
func YahooSymbol(code string, market dto.MarketType) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("empty stock code")
	}
	if strings.Contains(code, ".") {
		return code, nil
	}

	switch market {
	case dto.MarketUS:
		return code, nil
	case dto.MarketHK:
		code = strings.TrimLeft(code, "0")
		for len(code) < 4 {
			code = "0" + code
		}
		return code + ".HK", nil
	case dto.MarketA, dto.MarketETF, dto.MarketLOF:
		if len(code) != 6 {
			return "", fmt.Errorf("invalid exchange code %q: expected 6 digits", code)
		}
		switch code[0] {
		case '6', '5', '9':
			return code + ".SS", nil
		case '0', '1', '2', '3':
			return code + ".SZ", nil
		case '4', '8':
			return code + ".BJ", nil
		}
		return "", fmt.Errorf("unknown exchange for code %q", code)
	default:
		return "", fmt.Errorf("unsupported market type %q", market)
	}
}

func (r *yahooFinanceRepository) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.requestLimiter.Allow() {
		r.logger.WarnContext(ctx, "Yahoo Finance API request limit exceeded",
			logger.IntField("max_request_per_minute", r.cfg.YahooFinance.MaxRequestPerMinute),
		)
		return r.requestLimiter.Wait(ctx)
	}
	return nil
}

func (r *yahooFinanceRepository) Get(ctx context.Context, param dto.GetStockDataParam) (*dto.StockData, error) {
	symbol, err := YahooSymbol(param.StockCode, param.Market)
	if err != nil {
		return nil, err
	}

	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "/" + symbol

	period1, period2 := r.MapPeriodeStringToUnix(param.Range)
	if period1 == 0 || period2 == 0 {
		return nil, fmt.Errorf("invalid period %q", param.Range)
	}
	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", period1),
		"period2":        fmt.Sprintf("%d", period2),
		"interval":       param.Interval,
		"includePrePost": "false",
		"events":         "div,split",
	}

	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://finance.yahoo.com/",
	}

	var yahooResp dto.YahooFinanceResponse
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, headers, &yahooResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Yahoo Finance API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("symbol", symbol),
			logger.StringField("body", utils.Truncate(string(resp.Body), common.MaxLoggedBodyBytes)))
		return nil, fmt.Errorf("yahoo finance api returned status: %d", resp.StatusCode)
	}

	if yahooResp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance api error: %s: %s", yahooResp.Chart.Error.Code, yahooResp.Chart.Error.Description)
	}

	if len(yahooResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for symbol: %s", symbol)
	}

	result := yahooResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data available for symbol: %s", symbol)
	}

	quote := result.Indicators.Quote[0]

	var ohlcvData []dto.StockOHLCV
	for i, timestamp := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}

		// null entries decode as zero
		if quote.Open[i] == 0 || quote.High[i] == 0 || quote.Low[i] == 0 || quote.Close[i] == 0 {
			continue
		}

		ohlcvData = append(ohlcvData, dto.StockOHLCV{
			Timestamp: timestamp,
			Open:      quote.Open[i],
			High:      quote.High[i],
			Low:       quote.Low[i],
			Close:     quote.Close[i],
			Volume:    quote.Volume[i],
		})
	}

	if len(ohlcvData) == 0 {
		return nil, fmt.Errorf("no valid OHLCV data found for symbol: %s", symbol)
	}

	name := result.Meta.LongName
	if name == "" {
		name = result.Meta.ShortName
	}
	if name == "" {
		name = param.StockCode
	}

	return &dto.StockData{
		Symbol:      symbol,
		Name:        name,
		Currency:    result.Meta.Currency,
		MarketPrice: result.Meta.RegularMarketPrice,
		OHLCV:       ohlcvData,
		Range:       param.Range,
		Interval:    param.Interval,
	}, nil
}

// MapPeriodeStringToUnix converts a range such as "6m" into a period ending now.
func (r *yahooFinanceRepository) MapPeriodeStringToUnix(periode string) (int64, int64) {
	now := utils.TimeNowIn(r.loc)
	switch periode {
	case "1d":
		return now.AddDate(0, 0, -1).Unix(), now.Unix()
	case "5d":
		return now.AddDate(0, 0, -5).Unix(), now.Unix()
	case "14d":
		return now.AddDate(0, 0, -14).Unix(), now.Unix()
	case "1w":
		return now.AddDate(0, 0, -7).Unix(), now.Unix()
	case "1m", "1mo":
		return now.AddDate(0, -1, 0).Unix(), now.Unix()
	case "3m", "3mo":
		return now.AddDate(0, -3, 0).Unix(), now.Unix()
	case "6m", "6mo":
		return now.AddDate(0, -6, 0).Unix(), now.Unix()
	case "1y":
		return now.AddDate(-1, 0, 0).Unix(), now.Unix()
	case "2y":
		return now.AddDate(-2, 0, 0).Unix(), now.Unix()
	default:
		return 0, 0
	}
}
