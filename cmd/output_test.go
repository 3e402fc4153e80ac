package cmd

import (
	"bytes"
	"strings"
	"testing"

	"golang-stock-ai/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(final dto.AnalysisRecord) func(func(dto.AnalysisRecord) bool) {
	return func(yield func(dto.AnalysisRecord) bool) {
		records := []dto.AnalysisRecord{
			{StockCode: "600519", StockName: "Kweichow Moutai", Status: dto.StatusAnalyzing, BasicIndicators: &dto.BasicIndicators{
				RSI: 62.5, Price: 1688, PriceChange: 1.25, MATrend: dto.MATrendUp, MACDSignal: dto.MACDSignalBuy, VolumeStatus: dto.VolumeStatusHigh,
			}},
			{StockCode: "600519", Status: dto.StatusAnalyzing, AIAnalysisChunk: "Looks strong."},
			final,
		}
		for _, rec := range records {
			if !yield(rec) {
				return
			}
		}
	}
}

func TestWriteRecords_NDJSON(t *testing.T) {
	score := 75
	var buf bytes.Buffer
	ok, err := writeRecords(&buf, FormatNDJSON, sampleRecords(dto.AnalysisRecord{
		StockCode: "600519", Status: dto.StatusCompleted, Score: &score, Recommendation: dto.RecommendationBuy,
	}))
	require.NoError(t, err)
	assert.True(t, ok)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"ma_trend":"UP"`)
	assert.Contains(t, lines[1], `"ai_analysis_chunk":"Looks strong."`)
	assert.Contains(t, lines[2], `"score":75`)
}

func TestWriteRecords_Text(t *testing.T) {
	var buf bytes.Buffer
	ok, err := writeRecords(&buf, FormatText, sampleRecords(dto.AnalysisRecord{
		StockCode: "600519", Status: dto.StatusError, ErrorKind: dto.ErrRequestFailed, Error: "model endpoint returned status 500",
	}))
	require.NoError(t, err)
	assert.False(t, ok)

	out := buf.String()
	assert.Contains(t, out, "[600519 Kweichow Moutai] price 1688.00 (+1.25%) RSI 62.5")
	assert.Contains(t, out, "Looks strong.")
	assert.Contains(t, out, "[600519] error (request_failed): model endpoint returned status 500")
}

func TestFinish(t *testing.T) {
	assert.NoError(t, finish(true, nil))
	assert.ErrorIs(t, finish(false, nil), errAnalysisFailed)
}
