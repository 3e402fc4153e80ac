package service

import (
	"context"
	"iter"
	"strings"
	"time"

	"golang-stock-ai/config"
	"golang-stock-ai/internal/dto"
	"golang-stock-ai/pkg/logger"
	"golang-stock-ai/pkg/utils"

	"golang.org/x/sync/errgroup"
)

type ScanService interface {
	// Scan analyzes the codes in batches, framed by batch_start and batch_end records.
	Scan(ctx context.Context, req dto.ScanRequest) iter.Seq[dto.AnalysisRecord]
}

type scanService struct {
	cfg      *config.Config
	log      *logger.Logger
	analyzer AnalyzerService
}

func NewScanService(cfg *config.Config, log *logger.Logger, analyzer AnalyzerService) ScanService {
	return &scanService{
		cfg:      cfg,
		log:      log,
		analyzer: analyzer,
	}
}

func (s *scanService) Scan(ctx context.Context, req dto.ScanRequest) iter.Seq[dto.AnalysisRecord] {
	return func(yield func(dto.AnalysisRecord) bool) {
		codes := normalizeCodes(req.StockCodes)
		batchSize := s.cfg.Scanner.BatchSize
		if batchSize <= 0 {
			batchSize = 1
		}

		summary := dto.BatchSummary{Total: len(codes), BatchSize: batchSize}
		if !yield(dto.AnalysisRecord{StreamType: dto.StreamTypeBatchStart, Status: dto.StatusAnalyzing, BatchSummary: &summary}) {
			return
		}

		s.log.InfoContext(ctx, "Start scanning stocks",
			logger.IntField("total_stock", len(codes)),
			logger.IntField("batch_size", batchSize),
		)

		for start := 0; start < len(codes); start += batchSize {
			if !utils.ShouldContinue(ctx, s.log) {
				break
			}
			if start > 0 && !s.pause(ctx) {
				break
			}

			end := min(start+batchSize, len(codes))
			for rec := range s.runBatch(ctx, req, codes[start:end]) {
				if rec.IsFinal() {
					if rec.Status == dto.StatusCompleted {
						summary.Completed++
					} else {
						summary.Failed++
					}
				}
				if !yield(rec) {
					return
				}
			}
		}

		s.log.InfoContext(ctx, "Scan finished",
			logger.IntField("completed", summary.Completed),
			logger.IntField("failed", summary.Failed),
		)
		yield(dto.AnalysisRecord{StreamType: dto.StreamTypeBatchEnd, Status: dto.StatusCompleted, BatchSummary: &summary})
	}
}

// runBatch analyzes one batch concurrently. Records are handed to the caller's goroutine over a
// channel, so yield is never called from a worker.
func (s *scanService) runBatch(ctx context.Context, req dto.ScanRequest, codes []string) iter.Seq[dto.AnalysisRecord] {
	return func(yield func(dto.AnalysisRecord) bool) {
		batchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		records := make(chan dto.AnalysisRecord)
		g, gctx := errgroup.WithContext(batchCtx)

		for _, code := range codes {
			g.Go(func() error {
				analyzeReq := dto.AnalyzeRequest{StockCode: code, MarketType: req.MarketType, Stream: req.Stream}
				for rec := range s.analyzer.Analyze(gctx, analyzeReq) {
					select {
					case records <- rec:
					case <-gctx.Done():
						return nil
					}
				}
				return nil
			})
		}

		utils.GoSafe(func() {
			_ = g.Wait()
			close(records)
		})

		for rec := range records {
			if !yield(rec) {
				cancel()
				for range records {
				}
				return
			}
		}
	}
}

func (s *scanService) pause(ctx context.Context) bool {
	if s.cfg.Scanner.BatchPause <= 0 {
		return true
	}
	timer := time.NewTimer(s.cfg.Scanner.BatchPause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// normalizeCodes trims, upper-cases and de-duplicates codes, keeping the first occurrence.
func normalizeCodes(codes []string) []string {
	cleaned := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return utils.UniqueStrings(cleaned)
}
