package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang-stock-ai/config"
	"golang-stock-ai/internal/dto"
	"golang-stock-ai/pkg/httpclient"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCandleRepo struct {
	bars  []dto.StockOHLCV
	fails map[string]bool
	calls atomic.Int32
}

func (f *fakeCandleRepo) Get(ctx context.Context, param dto.GetStockDataParam) (*dto.StockData, error) {
	f.calls.Add(1)
	if f.fails[param.StockCode] {
		return nil, errors.New("no chart data")
	}
	return &dto.StockData{
		Symbol:   param.StockCode + ".SS",
		Name:     "Name " + param.StockCode,
		Currency: "CNY",
		Interval: param.Interval,
		OHLCV:    f.bars,
	}, nil
}

type fakeTransport struct {
	sse      string
	complete string
	calls    atomic.Int32
}

func (f *fakeTransport) OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.StreamResponse, error) {
	f.calls.Add(1)
	return &httpclient.StreamResponse{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(f.sse)),
	}, nil
}

func (f *fakeTransport) Complete(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.BaseResponse, error) {
	f.calls.Add(1)
	return &httpclient.BaseResponse{StatusCode: http.StatusOK, Body: []byte(f.complete)}, nil
}

const advice = "## Investment Advice\nStrong buy, the uptrend is intact."

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sse: "data: {\"choices\":[{\"delta\":{\"content\":\"Trend looks healthy. \"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"## Investment Advice\\nStrong buy, the uptrend is intact.\"}}]}\n\n" +
			"data: [DONE]\n\n",
		complete: `{"choices":[{"index":0,"message":{"role":"assistant","content":"` +
			strings.ReplaceAll(advice, "\n", `\n`) + `"},"finish_reason":"stop"}]}`,
	}
}

func risingBars(n int) []dto.StockOHLCV {
	start := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	bars := make([]dto.StockOHLCV, n)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = dto.StockOHLCV{
			Open:      price - 0.5,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    int64(10000 + i*100),
			Timestamp: start.AddDate(0, 0, i).Unix(),
		}
	}
	return bars
}

func testConfig() *config.Config {
	return &config.Config{
		AI: config.AI{
			Model:       "test-model",
			Temperature: 0.7,
			PullTimeout: time.Second,
			Stream:      true,
		},
		YahooFinance: config.YahooFinance{Range: "1y", Interval: "1d"},
		Scanner:      config.Scanner{BatchSize: 2},
		Scheduler: config.Scheduler{
			Watchlist:       []string{"600519", "000001"},
			WatchlistMarket: "A",
			ResultTTL:       time.Hour,
		},
		Market: config.Market{TimeZone: "Asia/Shanghai"},
	}
}
