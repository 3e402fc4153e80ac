package scoring

import (
	"testing"

	"golang-stock-ai/internal/dto"

	"github.com/stretchr/testify/assert"
)

func TestDerive_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		summary   dto.TechnicalSummary
		wantScore int
		wantRec   dto.Recommendation
	}{
		{
			name:      "everything bullish clamps to 100",
			text:      "Strong buy signal.\n## Investment Advice\nBuy on dips.",
			summary:   dto.TechnicalSummary{Trend: dto.TrendUpward, VolumeTrend: dto.VolumeIncreasing, RSILevel: 25},
			wantScore: 100,
			wantRec:   dto.RecommendationBuy,
		},
		{
			name:      "bearish text below the technical floor",
			text:      "Outlook is bearish.\n## Investment Advice\nReduce position.",
			summary:   dto.TechnicalSummary{Trend: dto.TrendDownward, VolumeTrend: dto.VolumeDecreasing, RSILevel: 80},
			wantScore: 10,
			wantRec:   dto.RecommendationSell,
		},
		{
			name:      "neutral text without advice",
			text:      "Range bound market.",
			summary:   dto.TechnicalSummary{Trend: dto.TrendDownward, VolumeTrend: dto.VolumeIncreasing, RSILevel: 50},
			wantScore: 45,
			wantRec:   dto.RecommendationWatch,
		},
		{
			name:      "chinese advice section",
			text:      "技术面看涨。\n## 投资建议\n建议继续持有。\n## 风险提示\n注意回撤，可考虑卖出",
			summary:   dto.TechnicalSummary{Trend: dto.TrendUpward, VolumeTrend: dto.VolumeDecreasing, RSILevel: 50},
			wantScore: 65,
			wantRec:   dto.RecommendationHold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, rec := Derive(tt.text, tt.summary)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantRec, rec)
		})
	}
}

func TestDerive_EmptyTextBearishSummary(t *testing.T) {
	summary := dto.TechnicalSummary{Trend: dto.TrendDownward, VolumeTrend: dto.VolumeDecreasing, RSILevel: 75}

	score, rec := Derive("", summary)
	assert.Equal(t, 20, score)
	assert.Equal(t, dto.RecommendationWatch, rec)
}

func TestScore_MonotonicInTrend(t *testing.T) {
	texts := []string{"", "buy", "strong sell", "bearish outlook", "强烈买入"}
	volumes := []string{dto.VolumeIncreasing, dto.VolumeDecreasing}
	rsis := []float64{10, 50, 90}

	for _, text := range texts {
		for _, vol := range volumes {
			for _, rsi := range rsis {
				up := Score(text, dto.TechnicalSummary{Trend: dto.TrendUpward, VolumeTrend: vol, RSILevel: rsi})
				down := Score(text, dto.TechnicalSummary{Trend: dto.TrendDownward, VolumeTrend: vol, RSILevel: rsi})
				assert.GreaterOrEqual(t, up, down, "text=%q vol=%s rsi=%v", text, vol, rsi)
			}
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	texts := []string{"", "STRONG BUY", "sharp decline", "buy", "sell", "看跌"}
	trends := []string{dto.TrendUpward, dto.TrendDownward, ""}
	rsis := []float64{-5, 0, 29.9, 30, 70, 70.1, 150}

	for _, text := range texts {
		for _, trend := range trends {
			for _, rsi := range rsis {
				score := Score(text, dto.TechnicalSummary{Trend: trend, RSILevel: rsi})
				assert.GreaterOrEqual(t, score, 0)
				assert.LessOrEqual(t, score, 100)
			}
		}
	}
}

func TestScore_FirstTierWins(t *testing.T) {
	summary := dto.TechnicalSummary{Trend: dto.TrendUpward, VolumeTrend: dto.VolumeDecreasing, RSILevel: 50}

	// "strong buy" also contains "buy"; only the stronger tier applies
	assert.Equal(t, 75, Score("a STRONG BUY setup", summary))
	// "buy" is checked before any sell tier
	assert.Equal(t, 65, Score("buy the dip, do not sell", summary))
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name string
		text string
		want dto.Recommendation
	}{
		{name: "no section", text: "buy buy buy", want: dto.RecommendationWatch},
		{name: "increase position", text: "## Investment Advice\nIncrease position gradually", want: dto.RecommendationBuy},
		{name: "sell", text: "## Investment Advice\nSell into strength", want: dto.RecommendationSell},
		{name: "hold", text: "## Investment Advice\nHold and wait", want: dto.RecommendationHold},
		{name: "nothing actionable", text: "## Investment Advice\nWait for confirmation", want: dto.RecommendationWatch},
		{name: "section stops at next heading", text: "## Investment Advice\nWait.\n## Risks\nsell-off risk", want: dto.RecommendationWatch},
		{name: "chinese increase", text: "## 投资建议\n可以增持", want: dto.RecommendationBuy},
		{name: "heading suffix", text: "## Investment Advice (short term)\nbuy", want: dto.RecommendationBuy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommend(tt.text))
		})
	}
}

func TestTechnicalScore(t *testing.T) {
	score, rec := TechnicalScore(dto.BasicIndicators{RSI: 25, MATrend: dto.MATrendUp, MACDSignal: dto.MACDSignalBuy, VolumeStatus: dto.VolumeStatusHigh, PriceChange: 1.2})
	assert.Equal(t, 90, score)
	assert.Equal(t, dto.RecommendationBuy, rec)

	score, rec = TechnicalScore(dto.BasicIndicators{RSI: 50, MATrend: dto.MATrendFlat, MACDSignal: dto.MACDSignalHold, VolumeStatus: dto.VolumeStatusNormal})
	assert.Equal(t, 50, score)
	assert.Equal(t, dto.RecommendationHold, rec)

	score, rec = TechnicalScore(dto.BasicIndicators{RSI: 50, MATrend: dto.MATrendDown, MACDSignal: dto.MACDSignalHold})
	assert.Equal(t, 35, score)
	assert.Equal(t, dto.RecommendationWatch, rec)

	score, rec = TechnicalScore(dto.BasicIndicators{RSI: 80, MATrend: dto.MATrendDown, MACDSignal: dto.MACDSignalSell, VolumeStatus: dto.VolumeStatusHigh, PriceChange: -3})
	assert.Equal(t, 10, score)
	assert.Equal(t, dto.RecommendationSell, rec)
}
