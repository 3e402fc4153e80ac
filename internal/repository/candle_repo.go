package repository

import (
	"context"
	"fmt"
	"time"

	"golang-stock-ai/config"
	"golang-stock-ai/internal/dto"
	"golang-stock-ai/internal/indicator"
	"golang-stock-ai/pkg/cache"
	"golang-stock-ai/pkg/common"
	"golang-stock-ai/pkg/logger"
	"golang-stock-ai/pkg/utils"
)

// CandleRepository returns bars for any supported interval, serving repeats from cache.
type CandleRepository interface {
	Get(ctx context.Context, param dto.GetStockDataParam) (*dto.StockData, error)
}

// Yahoo does not serve these intervals, they are built from finer bars.
var derivedIntervals = map[string]string{
	dto.Interval240Min: dto.Interval60Min,
}

type candleRepository struct {
	yahooRepo YahooFinanceRepository
	cache     cache.Cache
	ttl       time.Duration
	loc       *time.Location
	logger    *logger.Logger
}

func NewCandleRepository(cfg *config.Config, yahooRepo YahooFinanceRepository, c cache.Cache, log *logger.Logger) CandleRepository {
	return &candleRepository{
		yahooRepo: yahooRepo,
		cache:     c,
		ttl:       cfg.Cache.StockDataTTL,
		loc:       utils.GetMarketLocation(cfg.Market.TimeZone),
		logger:    log,
	}
}

func (r *candleRepository) Get(ctx context.Context, param dto.GetStockDataParam) (*dto.StockData, error) {
	key := fmt.Sprintf(common.KEY_STOCK_DATA, param.Market, param.StockCode, param.Range, param.Interval)
	if data, ok := cache.GetFromCache[*dto.StockData](r.cache, key); ok {
		r.logger.DebugContext(ctx, "stock data served from cache", logger.StringField("key", key))
		return data, nil
	}

	data, err := r.fetch(ctx, param)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && r.ttl > 0 {
		r.cache.Set(key, data, r.ttl)
	}
	return data, nil
}

func (r *candleRepository) fetch(ctx context.Context, param dto.GetStockDataParam) (*dto.StockData, error) {
	source, derived := derivedIntervals[param.Interval]
	if !derived {
		return r.yahooRepo.Get(ctx, param)
	}

	factor, err := indicator.ResampleFactor(source, param.Interval)
	if err != nil {
		return nil, err
	}

	fine := param
	fine.Interval = source
	data, err := r.yahooRepo.Get(ctx, fine)
	if err != nil {
		return nil, err
	}

	resampled := *data
	resampled.Interval = param.Interval
	resampled.OHLCV = indicator.Resample(data.OHLCV, factor, r.loc)

	r.logger.DebugContext(ctx, "resampled stock data",
		logger.StringField("source_interval", source),
		logger.StringField("interval", param.Interval),
		logger.IntField("source_bars", len(data.OHLCV)),
		logger.IntField("bars", len(resampled.OHLCV)),
	)
	return &resampled, nil
}
