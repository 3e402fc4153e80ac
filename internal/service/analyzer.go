package service

import (
	"context"
	"iter"
	"strings"
	"time"

	"golang-stock-ai/config"
	"golang-stock-ai/internal/dto"
	"golang-stock-ai/internal/indicator"
	"golang-stock-ai/internal/prompt"
	"golang-stock-ai/internal/repository"
	"golang-stock-ai/internal/scoring"
	"golang-stock-ai/internal/stream"
	"golang-stock-ai/pkg/common"
	"golang-stock-ai/pkg/logger"
	"golang-stock-ai/pkg/utils"
)

type AnalyzerService interface {
	// Analyze yields the basic indicator record first, then the model output, and always ends
	// with one final record whose status is completed or error.
	Analyze(ctx context.Context, req dto.AnalyzeRequest) iter.Seq[dto.AnalysisRecord]
}

type analyzerService struct {
	cfg        *config.Config
	log        *logger.Logger
	candleRepo repository.CandleRepository
	pump       *stream.Pump
	loc        *time.Location
}

func NewAnalyzerService(cfg *config.Config, log *logger.Logger, candleRepo repository.CandleRepository, transport stream.Transport) AnalyzerService {
	loc := utils.GetMarketLocation(cfg.Market.TimeZone)
	return &analyzerService{
		cfg:        cfg,
		log:        log,
		candleRepo: candleRepo,
		pump: stream.NewPump(transport, stream.PumpConfig{
			PullTimeout: cfg.AI.PullTimeout,
			Location:    loc,
		}, log),
		loc: loc,
	}
}

func (s *analyzerService) Analyze(ctx context.Context, req dto.AnalyzeRequest) iter.Seq[dto.AnalysisRecord] {
	return func(yield func(dto.AnalysisRecord) bool) {
		code := strings.ToUpper(strings.TrimSpace(req.StockCode))
		base := dto.AnalysisRecord{StockCode: code}

		market, err := dto.ParseMarketType(string(req.MarketType))
		if err != nil {
			yield(failed(base, dto.ErrDataUnavailable, err.Error()))
			return
		}
		base.MarketType = market

		log := s.log.With(logger.StringField(common.KEY_LOG_STOCK_CODE, code), logger.StringField(common.KEY_LOG_MARKET_TYPE, market.String()))

		data, err := s.candleRepo.Get(logger.NewContext(ctx, log), dto.GetStockDataParam{
			StockCode: code,
			Market:    market,
			Range:     s.cfg.YahooFinance.Range,
			Interval:  s.cfg.YahooFinance.Interval,
		})
		if err != nil {
			log.ErrorContext(ctx, "failed to get stock data", logger.ErrorField(err))
			yield(failed(base, dto.ErrDataUnavailable, "failed to get stock data: "+err.Error()))
			return
		}
		base.StockName = data.Name

		snapshot, err := indicator.Calculate(data.OHLCV)
		if err != nil {
			log.WarnContext(ctx, "failed to calculate indicators", logger.ErrorField(err), logger.IntField("bars", len(data.OHLCV)))
			yield(failed(base, dto.ErrDataUnavailable, err.Error()))
			return
		}

		summary := snapshot.TechnicalSummary()
		basic := snapshot.BasicIndicators()
		techScore, techRecommendation := scoring.TechnicalScore(basic)
		base.TechnicalScore = &techScore
		base.AnalysisDate = utils.TimeNowIn(s.loc).Format(utils.DateLayout)

		first := base
		first.Status = dto.StatusAnalyzing
		first.Recommendation = techRecommendation
		first.BasicIndicators = &basic
		if !yield(first) {
			return
		}

		info := dto.StockInfo{Code: code, Name: data.Name, Market: market, Sector: req.Sector, Concepts: req.Concepts}
		session := stream.NewSession(s.log, info, summary, &basic)
		chatReq := prompt.NewChatRequest(s.cfg.AI.Model, s.cfg.AI.Temperature, prompt.Compose(prompt.Params{
			Info:     info,
			Summary:  summary,
			Bars:     data.OHLCV,
			Location: s.loc,
		}), s.streaming(req.Stream))

		var events iter.Seq[dto.StreamEvent]
		if chatReq.Stream {
			events = s.pump.Run(ctx, session, chatReq)
		} else {
			events = s.pump.Complete(ctx, session, chatReq)
		}

		for ev := range events {
			rec, ok := toRecord(base, ev)
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func (s *analyzerService) streaming(override *bool) bool {
	if override != nil {
		return *override
	}
	return s.cfg.AI.Stream
}

func toRecord(base dto.AnalysisRecord, ev dto.StreamEvent) (dto.AnalysisRecord, bool) {
	switch ev.Kind {
	case dto.EventFragment:
		return dto.AnalysisRecord{
			StockCode:       base.StockCode,
			Status:          dto.StatusAnalyzing,
			AIAnalysisChunk: ev.Fragment,
		}, true

	case dto.EventError:
		return failed(base, ev.Err.Kind, ev.Err.Message), true

	case dto.EventDone:
		res := ev.Result
		rec := base
		rec.Status = res.Status
		rec.AIAnalysis = res.AIAnalysis
		rec.Score = &res.Score
		rec.Recommendation = res.Recommendation
		rec.BasicIndicators = res.BasicIndicators
		rec.EndReason = res.EndReason
		rec.AnalysisDate = res.AnalysisDate
		return rec, true

	default:
		return dto.AnalysisRecord{}, false
	}
}

func failed(base dto.AnalysisRecord, kind dto.ErrorKind, message string) dto.AnalysisRecord {
	rec := base
	rec.Status = dto.StatusError
	rec.Error = message
	rec.ErrorKind = kind
	return rec
}
