package dto

import (
	"fmt"
	"strings"
)

type MarketType string

const (
	MarketA   MarketType = "A"
	MarketHK  MarketType = "HK"
	MarketUS  MarketType = "US"
	MarketETF MarketType = "ETF"
	MarketLOF MarketType = "LOF"
)

var marketLabels = map[MarketType]string{
	MarketA:   "A-share",
	MarketHK:  "Hong Kong stock",
	MarketUS:  "US stock",
	MarketETF: "ETF",
	MarketLOF: "LOF fund",
}

func (m MarketType) IsValid() bool {
	_, ok := marketLabels[m]
	return ok
}

func (m MarketType) String() string {
	return string(m)
}

// Label is the human readable market name used in prompts.
func (m MarketType) Label() string {
	if label, ok := marketLabels[m]; ok {
		return label
	}
	return string(m)
}

// IsFund reports whether the instrument is an exchange traded fund variant.
func (m MarketType) IsFund() bool {
	return m == MarketETF || m == MarketLOF
}

// ParseMarketType accepts any casing and defaults to the A-share market when empty.
func ParseMarketType(s string) (MarketType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return MarketA, nil
	}
	m := MarketType(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unsupported market type %q", s)
	}
	return m, nil
}
