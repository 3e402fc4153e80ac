package scoring

import (
	"regexp"
	"strings"

	"golang-stock-ai/internal/dto"
)

const (
	baseScore = 50
	minScore  = 0
	maxScore  = 100

	rsiOversold   = 30
	rsiOverbought = 70
)

type keywordTier struct {
	delta    int
	keywords []string
}

// Tiers are checked in order and only the first hit counts.
var keywordTiers = []keywordTier{
	{delta: 20, keywords: []string{"strong buy", "sharp rally", "强烈买入", "显著上涨"}},
	{delta: 10, keywords: []string{"buy", "bullish", "买入", "看涨"}},
	{delta: -20, keywords: []string{"strong sell", "sharp decline", "强烈卖出", "显著下跌"}},
	{delta: -10, keywords: []string{"sell", "bearish", "卖出", "看跌"}},
}

var adviceSection = regexp.MustCompile(`(?is)##\s*(?:Investment Advice|投资建议)[^\n]*\n(.*?)(?:\n##|\z)`)

type recommendationRule struct {
	recommendation dto.Recommendation
	keywords       []string
}

var recommendationRules = []recommendationRule{
	{recommendation: dto.RecommendationBuy, keywords: []string{"buy", "increase position", "买入", "增持"}},
	{recommendation: dto.RecommendationSell, keywords: []string{"sell", "reduce position", "卖出", "减持"}},
	{recommendation: dto.RecommendationHold, keywords: []string{"hold", "持有"}},
}

// Derive scores the model text against the technical summary it was prompted with.
func Derive(text string, summary dto.TechnicalSummary) (int, dto.Recommendation) {
	return Score(text, summary), Recommend(text)
}

func Score(text string, summary dto.TechnicalSummary) int {
	score := baseScore

	if summary.Trend == dto.TrendUpward {
		score += 10
	} else {
		score -= 10
	}

	if summary.VolumeTrend == dto.VolumeIncreasing {
		score += 5
	} else {
		score -= 5
	}

	switch {
	case summary.RSILevel < rsiOversold:
		score += 15
	case summary.RSILevel > rsiOverbought:
		score -= 15
	}

	score += keywordDelta(strings.ToLower(text))

	return clamp(score, minScore, maxScore)
}

// Recommend reads the investment advice section. Without one the answer is watch.
func Recommend(text string) dto.Recommendation {
	m := adviceSection.FindStringSubmatch(text)
	if m == nil {
		return dto.RecommendationWatch
	}

	section := strings.ToLower(m[1])
	for _, rule := range recommendationRules {
		if containsAny(section, rule.keywords) {
			return rule.recommendation
		}
	}
	return dto.RecommendationWatch
}

func keywordDelta(lower string) int {
	for _, tier := range keywordTiers {
		if containsAny(lower, tier.keywords) {
			return tier.delta
		}
	}
	return 0
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
