package stream

import (
	"strings"
	"time"

	"golang-stock-ai/internal/dto"
	"golang-stock-ai/pkg/common"
	"golang-stock-ai/pkg/logger"

	"github.com/google/uuid"
)

// Stats counts what happened to the lines of one session.
type Stats struct {
	Fragments    int
	Malformed    int
	NotObject    int
	Unrecognized int
}

// Session holds the state of one analysis stream. It is created per call and must not be shared.
type Session struct {
	ID        string
	StockCode string
	Name      string
	Market    dto.MarketType
	StartedAt time.Time

	summary    dto.TechnicalSummary
	indicators *dto.BasicIndicators
	buffer     strings.Builder
	stats      Stats
	log        *logger.Logger
}

func NewSession(log *logger.Logger, info dto.StockInfo, summary dto.TechnicalSummary, indicators *dto.BasicIndicators) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:        id,
		StockCode: info.Code,
		Name:      info.Name,
		Market:    info.Market,
		StartedAt: time.Now(),
		summary:   summary,
		log: log.With(
			logger.StringField(common.KEY_LOG_SESSION_ID, id),
			logger.StringField(common.KEY_LOG_STOCK_CODE, info.Code),
			logger.StringField(common.KEY_LOG_MARKET_TYPE, info.Market.String()),
		),
	}
	if indicators != nil {
		cp := *indicators
		s.indicators = &cp
	}
	return s
}

// Summary returns a copy of the technical summary the prompt was built from.
func (s *Session) Summary() dto.TechnicalSummary {
	return s.summary
}

func (s *Session) BasicIndicators() *dto.BasicIndicators {
	if s.indicators == nil {
		return nil
	}
	cp := *s.indicators
	return &cp
}

// Text is everything received so far, in stream order.
func (s *Session) Text() string {
	return s.buffer.String()
}

func (s *Session) Stats() Stats {
	return s.stats
}

func (s *Session) Logger() *logger.Logger {
	return s.log
}

func (s *Session) append(fragment string) {
	s.buffer.WriteString(fragment)
	s.stats.Fragments++
}

func (s *Session) record(outcome Outcome) {
	switch outcome {
	case OutcomeMalformed:
		s.stats.Malformed++
	case OutcomeNotObject:
		s.stats.NotObject++
	case OutcomeUnrecognized:
		s.stats.Unrecognized++
	}
}
