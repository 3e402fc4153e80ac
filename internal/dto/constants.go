package dto

const (
	Interval60Min  string = "60m"
	Interval240Min string = "240m"
	Interval1Day   string = "1d"
	Interval1Week  string = "1wk"
)

// Technical summary vocabulary, shared by the prompt and the scorer.
const (
	TrendUpward   string = "upward"
	TrendDownward string = "downward"

	VolumeIncreasing string = "increasing"
	VolumeDecreasing string = "decreasing"
)

// Basic indicator vocabulary.
const (
	MATrendUp   string = "UP"
	MATrendDown string = "DOWN"
	MATrendFlat string = "FLAT"

	MACDSignalBuy  string = "BUY"
	MACDSignalSell string = "SELL"
	MACDSignalHold string = "HOLD"

	VolumeStatusHigh   string = "HIGH"
	VolumeStatusLow    string = "LOW"
	VolumeStatusNormal string = "NORMAL"
)
