package prompt

import (
	"fmt"
	"strings"
	"time"

	"golang-stock-ai/internal/dto"

	openai "github.com/sashabaranov/go-openai"
)

// RecentBars is how many of the latest bars are rendered into the prompt.
const RecentBars = 14

type Params struct {
	Info     dto.StockInfo
	Summary  dto.TechnicalSummary
	Bars     []dto.StockOHLCV
	Location *time.Location
}

type marketFraming struct {
	subject  string
	currency string
	tasks    []string
}

var framings = map[dto.MarketType]marketFraming{
	dto.MarketA: {
		subject: "A-share stock",
		tasks: []string{
			"Trend analysis with support and resistance levels",
			"Volume analysis",
			"Risk assessment (volatility)",
			"Short and medium term price targets",
			"Key technical levels",
			"Trading advice including a stop loss",
			"Related themes and concept sectors",
		},
	},
	dto.MarketHK: {
		subject:  "Hong Kong stock",
		currency: "HKD",
		tasks: []string{
			"Trend analysis with support and resistance levels (HKD)",
			"Volume analysis",
			"Risk assessment (volatility, Hong Kong market risk)",
			"Short and medium term price targets (HKD)",
			"Key technical levels",
			"Trading advice including a stop loss",
			"Related investment themes",
		},
	},
	dto.MarketUS: {
		subject:  "US stock",
		currency: "USD",
		tasks: []string{
			"Trend analysis with support and resistance levels (USD)",
			"Volume analysis",
			"Risk assessment (volatility, US market risk)",
			"Short and medium term price targets (USD)",
			"Key technical levels",
			"Trading advice including a stop loss",
			"Related investment themes",
		},
	},
	dto.MarketETF: {
		subject: "fund (ETF)",
		tasks: []string{
			"Net value trend analysis with support and resistance levels",
			"Volume analysis",
			"Risk assessment (volatility, premium or discount)",
			"Short and medium term outlook",
			"Key price levels",
			"Subscription and redemption advice including a stop loss",
		},
	},
	dto.MarketLOF: {
		subject: "fund (LOF)",
		tasks: []string{
			"Net value trend analysis with support and resistance levels",
			"Volume analysis",
			"Risk assessment (volatility, premium or discount)",
			"Short and medium term outlook",
			"Key price levels",
			"Subscription and redemption advice including a stop loss",
		},
	},
}

// Compose renders the analysis prompt. The answer must end with an "## Investment Advice"
// section, which the scorer reads the recommendation from.
func Compose(p Params) string {
	framing, ok := framings[p.Info.Market]
	if !ok {
		framing = framings[dto.MarketA]
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Analyze the %s %s", framing.subject, p.Info.Code))
	if name := strings.TrimSpace(p.Info.Name); name != "" && name != p.Info.Code {
		sb.WriteString(fmt.Sprintf(" (%s)", name))
	}
	if sector := strings.TrimSpace(p.Info.Sector); sector != "" {
		if p.Info.Market.IsFund() {
			sb.WriteString(fmt.Sprintf(", fund type: %s", sector))
		} else {
			sb.WriteString(fmt.Sprintf(", sector: %s", sector))
		}
	}
	sb.WriteString(".\n")

	if len(p.Info.Concepts) > 0 && p.Info.Market == dto.MarketA {
		sb.WriteString(fmt.Sprintf("Themes and concept sectors: %s\n", strings.Join(p.Info.Concepts, ", ")))
	}
	if framing.currency != "" {
		sb.WriteString(fmt.Sprintf("Prices are quoted in %s.\n", framing.currency))
	}

	sb.WriteString("\n### Technical summary\n")
	sb.WriteString(fmt.Sprintf("- Trend: %s\n", p.Summary.Trend))
	sb.WriteString(fmt.Sprintf("- Volatility: %s\n", p.Summary.Volatility))
	sb.WriteString(fmt.Sprintf("- Volume trend: %s\n", p.Summary.VolumeTrend))
	sb.WriteString(fmt.Sprintf("- RSI: %.2f\n", p.Summary.RSILevel))

	bars := p.Bars
	if len(bars) > RecentBars {
		bars = bars[len(bars)-RecentBars:]
	}
	if len(bars) > 0 {
		sb.WriteString(fmt.Sprintf("\n### Last %d bars (date, open, high, low, close, volume)\n", len(bars)))
		for _, b := range bars {
			sb.WriteString(fmt.Sprintf("%s, %.3f, %.3f, %.3f, %.3f, %d\n",
				time.Unix(b.Timestamp, 0).In(loc).Format("2006-01-02 15:04"),
				b.Open, b.High, b.Low, b.Close, b.Volume,
			))
		}
	}

	sb.WriteString("\n### Please provide\n")
	for i, task := range framing.tasks {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, task))
	}

	sb.WriteString(`
Use markdown headings (##) for each part. Finish with a section titled exactly
"## Investment Advice" that states one of: buy, increase position, hold, reduce position, sell.
`)

	return sb.String()
}

// NewChatRequest wraps a prompt into a single user message request.
func NewChatRequest(model string, temperature float32, prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		Stream:      stream,
	}
}
