package prompt

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"golang-stock-ai/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(n int) []dto.StockOHLCV {
	start := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	out := make([]dto.StockOHLCV, n)
	for i := range out {
		out[i] = dto.StockOHLCV{
			Open: 10, High: 11, Low: 9, Close: 10.5, Volume: int64(1000 + i),
			Timestamp: start.AddDate(0, 0, i).Unix(),
		}
	}
	return out
}

func TestCompose_RecentBarsOnly(t *testing.T) {
	out := Compose(Params{
		Info:    dto.StockInfo{Code: "600519", Name: "Kweichow Moutai", Market: dto.MarketA, Sector: "Liquor", Concepts: []string{"Consumption", "Baijiu"}},
		Summary: dto.TechnicalSummary{Trend: dto.TrendUpward, Volatility: "1.23%", VolumeTrend: dto.VolumeIncreasing, RSILevel: 61.234},
		Bars:    bars(20),
	})

	assert.Contains(t, out, "Analyze the A-share stock 600519 (Kweichow Moutai), sector: Liquor.")
	assert.Contains(t, out, "Themes and concept sectors: Consumption, Baijiu")
	assert.Contains(t, out, "- Volatility: 1.23%")
	assert.Contains(t, out, "- RSI: 61.23")
	assert.Contains(t, out, "### Last 14 bars")
	assert.NotContains(t, out, ", 1005\n")
	assert.Contains(t, out, ", 1006\n")
	assert.Contains(t, out, ", 1019\n")
	assert.Contains(t, out, `"## Investment Advice"`)
	assert.Contains(t, out, "7. Related themes and concept sectors")
}

func TestCompose_MarketFraming(t *testing.T) {
	tests := []struct {
		market dto.MarketType
		want   []string
	}{
		{market: dto.MarketHK, want: []string{"Hong Kong stock", "HKD"}},
		{market: dto.MarketUS, want: []string{"US stock", "USD"}},
		{market: dto.MarketETF, want: []string{"fund (ETF)", "fund type: Broad index", "premium or discount"}},
		{market: dto.MarketLOF, want: []string{"fund (LOF)", "Subscription and redemption"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.market), func(t *testing.T) {
			out := Compose(Params{Info: dto.StockInfo{Code: "X1", Market: tt.market, Sector: "Broad index", Concepts: []string{"ignored"}}})
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			assert.NotContains(t, out, "Themes and concept sectors")
			assert.NotContains(t, out, "### Last")
		})
	}
}

func TestCompose_NameEqualToCodeIsOmitted(t *testing.T) {
	out := Compose(Params{Info: dto.StockInfo{Code: "AAPL", Name: "AAPL", Market: dto.MarketUS}})
	assert.True(t, strings.HasPrefix(out, "Analyze the US stock AAPL.\n"))
}

func TestNewChatRequest(t *testing.T) {
	req := NewChatRequest("gpt-4o-mini", 0.7, "hello", true)

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.InDelta(t, 0.7, body["temperature"], 0.0001)

	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]interface{})
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "hello", msg["content"])
}
