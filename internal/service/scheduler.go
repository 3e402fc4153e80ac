package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang-stock-ai/config"
	"golang-stock-ai/internal/dto"
	"golang-stock-ai/pkg/cache"
	"golang-stock-ai/pkg/common"
	"golang-stock-ai/pkg/logger"
	"golang-stock-ai/pkg/utils"

	"github.com/robfig/cron/v3"
)

type SchedulerService interface {
	Start() error
	Stop(ctx context.Context)
	// RunOnce scans the configured watchlist and caches the final records.
	RunOnce(ctx context.Context) (*dto.WatchlistSnapshot, error)
	Latest() (*dto.WatchlistSnapshot, bool)
}

var ErrScanInProgress = errors.New("watchlist scan already in progress")

type schedulerService struct {
	cfg     *config.Config
	log     *logger.Logger
	cache   cache.Cache
	scanner ScanService
	cron    *cron.Cron
	loc     *time.Location
	running atomic.Bool
}

func NewSchedulerService(cfg *config.Config, log *logger.Logger, inmemoryCache cache.Cache, scanner ScanService) SchedulerService {
	loc := utils.GetMarketLocation(cfg.Market.TimeZone)
	return &schedulerService{
		cfg:     cfg,
		log:     log,
		cache:   inmemoryCache,
		scanner: scanner,
		loc:     loc,
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithLocation(loc),
		),
	}
}

func (s *schedulerService) Start() error {
	if s.cfg.Scheduler.WatchlistCron == "" || len(s.cfg.Scheduler.Watchlist) == 0 {
		s.log.Info("Watchlist scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Scheduler.WatchlistCron, func() {
		ctx := context.Background()
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.ErrorContext(ctx, "Scheduled watchlist scan failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to parse watchlist cron %q: %w", s.cfg.Scheduler.WatchlistCron, err)
	}

	s.cron.Start()
	s.log.Info("Watchlist scheduler started",
		logger.StringField("cron", s.cfg.Scheduler.WatchlistCron),
		logger.IntField("watchlist_size", len(s.cfg.Scheduler.Watchlist)),
	)
	return nil
}

// Stop waits for a running scan to finish or ctx to expire.
func (s *schedulerService) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Watchlist scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("Timeout while stopping watchlist scheduler")
	}
}

func (s *schedulerService) RunOnce(ctx context.Context) (*dto.WatchlistSnapshot, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.WarnContext(ctx, "Skipping watchlist scan, previous run still active")
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	market, err := dto.ParseMarketType(s.cfg.Scheduler.WatchlistMarket)
	if err != nil {
		return nil, err
	}

	stream := false
	snapshot := &dto.WatchlistSnapshot{
		RunAt:  utils.TimeNowIn(s.loc).Format(time.RFC3339),
		Market: market,
	}

	records := s.scanner.Scan(ctx, dto.ScanRequest{
		StockCodes: s.cfg.Scheduler.Watchlist,
		MarketType: market,
		Stream:     &stream,
	})
	for rec := range records {
		if rec.IsFinal() {
			snapshot.Records = append(snapshot.Records, rec)
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.cache.Set(common.KEY_WATCHLIST_LATEST, snapshot, s.cfg.Scheduler.ResultTTL)
	s.log.InfoContext(ctx, "Watchlist scan cached",
		logger.IntField("records", len(snapshot.Records)),
		logger.StringField("run_at", snapshot.RunAt),
	)
	return snapshot, nil
}

func (s *schedulerService) Latest() (*dto.WatchlistSnapshot, bool) {
	return cache.GetFromCache[*dto.WatchlistSnapshot](s.cache, common.KEY_WATCHLIST_LATEST)
}
