package utils

import (
	"time"
)

const DateLayout = "2006-01-02"

// GetMarketLocation loads the exchange time zone, falling back to UTC+8 when the tz database is missing.
func GetMarketLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, 8*60*60)
	}
	return loc
}

func TimeNowIn(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// SameTradingDay reports whether two unix timestamps fall on the same calendar day in loc.
func SameTradingDay(a, b int64, loc *time.Location) bool {
	ta := time.Unix(a, 0).In(loc)
	tb := time.Unix(b, 0).In(loc)
	return ta.Year() == tb.Year() && ta.YearDay() == tb.YearDay()
}
