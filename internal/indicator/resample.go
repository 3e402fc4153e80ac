package indicator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang-stock-ai/internal/dto"
	"golang-stock-ai/pkg/utils"
)

// IntervalMinutes parses intraday intervals such as "60m", "1h" or "240m".
func IntervalMinutes(interval string) (int, error) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	unit := 1
	switch {
	case strings.HasSuffix(interval, "m"):
		interval = strings.TrimSuffix(interval, "m")
	case strings.HasSuffix(interval, "h"):
		interval = strings.TrimSuffix(interval, "h")
		unit = 60
	default:
		return 0, fmt.Errorf("not an intraday interval: %q", interval)
	}

	n, err := strconv.Atoi(interval)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	return n * unit, nil
}

// ResampleFactor is how many source bars make up one target bar.
func ResampleFactor(source, target string) (int, error) {
	src, err := IntervalMinutes(source)
	if err != nil {
		return 0, err
	}
	dst, err := IntervalMinutes(target)
	if err != nil {
		return 0, err
	}
	if dst < src || dst%src != 0 {
		return 0, fmt.Errorf("cannot build %s bars from %s bars", target, source)
	}
	return dst / src, nil
}

// Resample merges every factor consecutive bars of the same trading day into one bar. Windows
// never cross a day boundary, a short last window of the day is kept, and each merged bar is
// stamped with the time of its first source bar.
func Resample(bars []dto.StockOHLCV, factor int, loc *time.Location) []dto.StockOHLCV {
	if factor <= 1 || len(bars) == 0 {
		return bars
	}
	if loc == nil {
		loc = time.UTC
	}

	out := make([]dto.StockOHLCV, 0, len(bars)/factor+1)
	var (
		cur   dto.StockOHLCV
		count int
	)
	for _, b := range bars {
		if count > 0 && (count == factor || !utils.SameTradingDay(cur.Timestamp, b.Timestamp, loc)) {
			out = append(out, cur)
			count = 0
		}

		if count == 0 {
			cur = b
			count = 1
			continue
		}

		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
		count++
	}
	if count > 0 {
		out = append(out, cur)
	}

	return out
}
