package dto

type StreamType string

const (
	StreamTypeBatchStart StreamType = "batch_start"
	StreamTypeBatchEnd   StreamType = "batch_end"
)

type BatchSummary struct {
	Total     int `json:"total"`
	BatchSize int `json:"batch_size"`
	Completed int `json:"completed,omitempty"`
	Failed    int `json:"failed,omitempty"`
}

// AnalysisRecord is one NDJSON line written to CLI and HTTP consumers.
type AnalysisRecord struct {
	StreamType      StreamType     `json:"stream_type,omitempty"`
	StockCode       string         `json:"stock_code,omitempty"`
	StockName       string         `json:"stock_name,omitempty"`
	MarketType      MarketType     `json:"market_type,omitempty"`
	Status          AnalysisStatus `json:"status"`
	AIAnalysisChunk string         `json:"ai_analysis_chunk,omitempty"`
	AIAnalysis      string         `json:"ai_analysis,omitempty"`
	Score           *int           `json:"score,omitempty"`
	Recommendation  Recommendation `json:"recommendation,omitempty"`
	TechnicalScore  *int           `json:"technical_score,omitempty"`
	*BasicIndicators
	Error        string    `json:"error,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	AnalysisDate string    `json:"analysis_date,omitempty"`
	EndReason    EndReason `json:"end_reason,omitempty"`
	*BatchSummary
}

// IsFinal reports whether the record closes the analysis of one instrument.
func (r AnalysisRecord) IsFinal() bool {
	if r.StreamType != "" {
		return false
	}
	return r.Status == StatusError || (r.Status == StatusCompleted && r.AIAnalysisChunk == "")
}

// WatchlistSnapshot is the outcome of the latest scheduled watchlist scan.
type WatchlistSnapshot struct {
	RunAt   string           `json:"run_at"`
	Market  MarketType       `json:"market_type"`
	Records []AnalysisRecord `json:"records"`
}
