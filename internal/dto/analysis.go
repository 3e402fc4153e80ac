package dto

type AnalysisStatus string

const (
	StatusAnalyzing AnalysisStatus = "analyzing"
	StatusCompleted AnalysisStatus = "completed"
	StatusError     AnalysisStatus = "error"
)

type Recommendation string

const (
	RecommendationBuy   Recommendation = "buy"
	RecommendationSell  Recommendation = "sell"
	RecommendationHold  Recommendation = "hold"
	RecommendationWatch Recommendation = "watch"
)

// EndReason tells how a completed stream stopped.
type EndReason string

const (
	EndReasonTerminal EndReason = "terminal"
	EndReasonEOF      EndReason = "eof"
	EndReasonTimeout  EndReason = "timeout"
)

// TechnicalSummary is captured once before the model is called and never mutated afterwards.
type TechnicalSummary struct {
	Trend       string  `json:"trend"`
	Volatility  string  `json:"volatility"`
	VolumeTrend string  `json:"volume_trend"`
	RSILevel    float64 `json:"rsi_level"`
}

type BasicIndicators struct {
	RSI              float64 `json:"rsi"`
	Price            float64 `json:"price"`
	PriceChange      float64 `json:"price_change"`
	PriceChangeValue float64 `json:"price_change_value"`
	MATrend          string  `json:"ma_trend"`
	MACDSignal       string  `json:"macd_signal"`
	VolumeStatus     string  `json:"volume_status"`
}

type AnalysisResult struct {
	BasicIndicators *BasicIndicators `json:"basic_indicators,omitempty"`
	Score           int              `json:"score"`
	Recommendation  Recommendation   `json:"recommendation"`
	Status          AnalysisStatus   `json:"status"`
	AIAnalysis      string           `json:"ai_analysis"`
	EndReason       EndReason        `json:"end_reason,omitempty"`
	AnalysisDate    string           `json:"analysis_date"`
	Error           *ErrorDetail     `json:"error,omitempty"`
}
