package service

import (
	"golang-stock-ai/config"
	"golang-stock-ai/internal/repository"
	"golang-stock-ai/pkg/cache"
	"golang-stock-ai/pkg/logger"
)

type Service struct {
	AnalyzerService  AnalyzerService
	ScanService      ScanService
	SchedulerService SchedulerService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
) *Service {
	analyzerService := NewAnalyzerService(cfg, log, repo.CandleRepo, repo.AIRepo)
	scanService := NewScanService(cfg, log, analyzerService)
	schedulerService := NewSchedulerService(cfg, log, inmemoryCache, scanService)

	return &Service{
		AnalyzerService:  analyzerService,
		ScanService:      scanService,
		SchedulerService: schedulerService,
	}
}
