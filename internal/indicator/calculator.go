package indicator

import (
	"errors"
	"math"

	"golang-stock-ai/internal/dto"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

const (
	periodMAShort  = 5
	periodMAMid    = 20
	periodMALong   = 60
	periodRSI      = 14
	periodVolumeMA = 20
	periodVolatile = 20

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// MinBars is the least history that yields a price change.
	MinBars = 2
)

var ErrInsufficientData = errors.New("not enough bars to compute indicators")

// Snapshot holds the latest value of every indicator. A zero value means the history was too
// short for that indicator.
type Snapshot struct {
	Price       float64
	PrevClose   float64
	Volume      int64
	MA5         float64
	MA20        float64
	MA60        float64
	RSI         float64
	MACD        float64
	MACDSignal  float64
	MACDHist    float64
	VolumeMA    float64
	VolumeRatio float64
	Volatility  float64
	Bars        int
}

func Calculate(bars []dto.StockOHLCV) (*Snapshot, error) {
	if len(bars) < MinBars {
		return nil, ErrInsufficientData
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	last := bars[len(bars)-1]
	s := &Snapshot{
		Price:       last.Close,
		PrevClose:   bars[len(bars)-2].Close,
		Volume:      last.Volume,
		RSI:         50,
		VolumeRatio: 1,
		Bars:        len(bars),
	}

	s.MA5 = latestSMA(closes, periodMAShort)
	s.MA20 = latestSMA(closes, periodMAMid)
	s.MA60 = latestSMA(closes, periodMALong)

	if len(closes) > periodRSI {
		if v := latest(talib.Rsi(closes, periodRSI)); !math.IsNaN(v) {
			s.RSI = v
		}
	}

	if len(closes) >= macdSlow+macdSignal {
		m, sig, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		s.MACD, s.MACDSignal, s.MACDHist = latest(m), latest(sig), latest(hist)
	}

	if s.VolumeMA = latestSMA(volumes, periodVolumeMA); s.VolumeMA > 0 {
		s.VolumeRatio = float64(last.Volume) / s.VolumeMA
	}

	s.Volatility = volatility(closes, periodVolatile)

	return s, nil
}

// TechnicalSummary is the compact view handed to the prompt and the scorer.
func (s *Snapshot) TechnicalSummary() dto.TechnicalSummary {
	trend := dto.TrendDownward
	if s.MA5 > s.MA20 {
		trend = dto.TrendUpward
	}
	volumeTrend := dto.VolumeDecreasing
	if s.VolumeRatio > 1 {
		volumeTrend = dto.VolumeIncreasing
	}
	return dto.TechnicalSummary{
		Trend:       trend,
		Volatility:  decimal.NewFromFloat(s.Volatility).StringFixed(2) + "%",
		VolumeTrend: volumeTrend,
		RSILevel:    round(s.RSI, 2),
	}
}

func (s *Snapshot) BasicIndicators() dto.BasicIndicators {
	change, changePct := s.priceChange()

	return dto.BasicIndicators{
		RSI:              round(s.RSI, 2),
		Price:            s.Price,
		PriceChange:      changePct,
		PriceChangeValue: change,
		MATrend:          s.maTrend(),
		MACDSignal:       s.macdSignal(),
		VolumeStatus:     s.volumeStatus(),
	}
}

func (s *Snapshot) priceChange() (float64, float64) {
	price := decimal.NewFromFloat(s.Price)
	prev := decimal.NewFromFloat(s.PrevClose)
	diff := price.Sub(prev)
	if prev.IsZero() {
		return diff.Round(4).InexactFloat64(), 0
	}
	pct := diff.Div(prev).Mul(decimal.NewFromInt(100))
	return diff.Round(4).InexactFloat64(), pct.Round(2).InexactFloat64()
}

func (s *Snapshot) maTrend() string {
	switch {
	case s.MA5 > s.MA20 && s.MA20 > s.MA60:
		return dto.MATrendUp
	case s.MA5 < s.MA20 && s.MA20 < s.MA60:
		return dto.MATrendDown
	default:
		return dto.MATrendFlat
	}
}

func (s *Snapshot) macdSignal() string {
	switch {
	case s.MACD > s.MACDSignal:
		return dto.MACDSignalBuy
	case s.MACD < s.MACDSignal:
		return dto.MACDSignalSell
	default:
		return dto.MACDSignalHold
	}
}

func (s *Snapshot) volumeStatus() string {
	if s.VolumeMA == 0 {
		return dto.VolumeStatusNormal
	}
	v := float64(s.Volume)
	switch {
	case v > s.VolumeMA*1.5:
		return dto.VolumeStatusHigh
	case v < s.VolumeMA*0.5:
		return dto.VolumeStatusLow
	default:
		return dto.VolumeStatusNormal
	}
}

// volatility is the standard deviation of bar returns over the window, in percent.
func volatility(closes []float64, period int) float64 {
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}
	if period > len(returns) {
		period = len(returns)
	}
	std := latest(talib.StdDev(returns, period, 1))
	if math.IsNaN(std) {
		return 0
	}
	return std * 100
}

func latestSMA(series []float64, period int) float64 {
	if len(series) < period {
		return 0
	}
	return latest(talib.Sma(series, period))
}

func latest(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
