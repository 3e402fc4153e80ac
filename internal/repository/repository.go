package repository

import (
	"context"

	"golang-stock-ai/config"
	"golang-stock-ai/pkg/cache"
	"golang-stock-ai/pkg/logger"
)

type Repository struct {
	YahooFinanceRepo YahooFinanceRepository
	CandleRepo       CandleRepository
	AIRepo           AIRepository
}

func NewRepository(cfg *config.Config, c cache.Cache, log *logger.Logger) (*Repository, error) {
	counter, err := NewTokenCounter(context.Background(), cfg.AI.TokenCounter)
	if err != nil {
		return nil, err
	}

	yahooRepo := NewYahooFinanceRepository(cfg, log)

	return &Repository{
		YahooFinanceRepo: yahooRepo,
		CandleRepo:       NewCandleRepository(cfg, yahooRepo, c, log),
		AIRepo:           NewAIRepository(cfg, log, counter),
	}, nil
}
