package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"golang-stock-ai/internal/dto"
)

const (
	FormatNDJSON = "ndjson"
	FormatText   = "text"
)

// writeRecords prints records as they arrive. It reports whether every instrument completed.
func writeRecords(w io.Writer, format string, records iter.Seq[dto.AnalysisRecord]) (bool, error) {
	ok := true
	enc := json.NewEncoder(w)
	for rec := range records {
		if rec.Status == dto.StatusError {
			ok = false
		}

		var err error
		if format == FormatText {
			err = writeText(w, rec)
		} else {
			err = enc.Encode(rec)
		}
		if err != nil {
			return ok, err
		}
	}
	return ok, nil
}

func writeText(w io.Writer, rec dto.AnalysisRecord) error {
	var err error
	switch {
	case rec.StreamType == dto.StreamTypeBatchStart:
		_, err = fmt.Fprintf(w, "==> scanning %d stocks, batch size %d\n", rec.Total, rec.BatchSize)
	case rec.StreamType == dto.StreamTypeBatchEnd:
		_, err = fmt.Fprintf(w, "==> done: %d completed, %d failed\n", rec.Completed, rec.Failed)
	case rec.AIAnalysisChunk != "":
		_, err = io.WriteString(w, rec.AIAnalysisChunk)
	case rec.Status == dto.StatusError:
		_, err = fmt.Fprintf(w, "\n[%s] error (%s): %s\n", rec.StockCode, rec.ErrorKind, rec.Error)
	case rec.Status == dto.StatusCompleted:
		score := 0
		if rec.Score != nil {
			score = *rec.Score
		}
		_, err = fmt.Fprintf(w, "\n\n[%s %s] score %d, %s (%s)\n", rec.StockCode, rec.StockName, score, rec.Recommendation, rec.EndReason)
	case rec.BasicIndicators != nil:
		_, err = fmt.Fprintf(w, "[%s %s] price %.2f (%+.2f%%) RSI %.1f MA %s MACD %s volume %s\n",
			rec.StockCode, rec.StockName, rec.Price, rec.PriceChange, rec.RSI, rec.MATrend, rec.MACDSignal, rec.VolumeStatus)
	}
	return err
}
