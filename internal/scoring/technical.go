package scoring

import (
	"golang-stock-ai/internal/dto"
)

// TechnicalScore is the heuristic score shown before the model answers. It only looks at the
// indicators, so it is available even when the model call fails.
func TechnicalScore(ind dto.BasicIndicators) (int, dto.Recommendation) {
	score := baseScore

	switch ind.MATrend {
	case dto.MATrendUp:
		score += 15
	case dto.MATrendDown:
		score -= 15
	}

	switch ind.MACDSignal {
	case dto.MACDSignalBuy:
		score += 10
	case dto.MACDSignalSell:
		score -= 10
	}

	switch {
	case ind.RSI > 0 && ind.RSI < rsiOversold:
		score += 10
	case ind.RSI > rsiOverbought:
		score -= 10
	}

	if ind.VolumeStatus == dto.VolumeStatusHigh {
		if ind.PriceChange >= 0 {
			score += 5
		} else {
			score -= 5
		}
	}

	score = clamp(score, minScore, maxScore)

	switch {
	case score >= 70:
		return score, dto.RecommendationBuy
	case score >= 50:
		return score, dto.RecommendationHold
	case score >= 35:
		return score, dto.RecommendationWatch
	default:
		return score, dto.RecommendationSell
	}
}
