package stream

import (
	"encoding/json"
	"strings"

	"golang-stock-ai/pkg/common"
	"golang-stock-ai/pkg/logger"
	"golang-stock-ai/pkg/utils"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

type Outcome int

const (
	OutcomeContent Outcome = iota
	OutcomeFinished
	OutcomeMalformed
	OutcomeNotObject
	OutcomeUnrecognized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContent:
		return "content"
	case OutcomeFinished:
		return "finished"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeNotObject:
		return "not_object"
	default:
		return "unrecognized"
	}
}

// Shape names the response layout a fragment was found in.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeChoicesDelta
	ShapeChoicesMessage
	ShapeCandidates
	ShapeOutput
	ShapeText
)

func (s Shape) String() string {
	switch s {
	case ShapeChoicesDelta:
		return "choices.delta"
	case ShapeChoicesMessage:
		return "choices.message"
	case ShapeCandidates:
		return "candidates"
	case ShapeOutput:
		return "output"
	case ShapeText:
		return "text"
	default:
		return "none"
	}
}

// Extraction is the result of decoding one candidate line. Content is only set on OutcomeContent.
type Extraction struct {
	Outcome Outcome
	Shape   Shape
	Content string
}

type choiceFrame struct {
	FinishReason openai.FinishReason                     `json:"finish_reason"`
	Delta        *openai.ChatCompletionStreamChoiceDelta `json:"delta"`
	Message      *openai.ChatCompletionMessage           `json:"message"`
}

type probe func(obj map[string]json.RawMessage) (Extraction, bool)

// Extractor pulls text out of the response shapes used by OpenAI compatible, Gemini and
// plain text-completion endpoints.
type Extractor struct {
	log    *logger.Logger
	probes []probe
}

func NewExtractor(log *logger.Logger) *Extractor {
	return &Extractor{
		log: log,
		probes: []probe{
			probeChoices,
			probeCandidates,
			probeString("output", ShapeOutput),
			probeString("text", ShapeText),
		},
	}
}

// Extract never panics; anything it cannot understand is reported through the outcome.
func (e *Extractor) Extract(candidate string) (ex Extraction) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("recovered while decoding stream line", logger.StringField("category", utils.ErrorCategory(r)))
			ex = Extraction{Outcome: OutcomeMalformed}
		}
	}()

	data := []byte(candidate)
	if !json.Valid(data) {
		e.logMalformed(candidate)
		return Extraction{Outcome: OutcomeMalformed}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return Extraction{Outcome: OutcomeNotObject}
	}

	for _, p := range e.probes {
		if ex, ok := p(obj); ok {
			return ex
		}
	}

	return Extraction{Outcome: OutcomeUnrecognized}
}

func (e *Extractor) logMalformed(candidate string) {
	sample := logger.StringField("sample", utils.Truncate(candidate, common.MaxLoggedBodyBytes))
	if strings.HasPrefix(candidate, "{") || strings.HasPrefix(candidate, "[") {
		e.log.Warn("failed to decode stream line", sample)
		return
	}
	e.log.Debug("skipping non-json stream line", sample)
}

func probeChoices(obj map[string]json.RawMessage) (Extraction, bool) {
	raw, ok := obj["choices"]
	if !ok {
		return Extraction{}, false
	}

	var choices []choiceFrame
	if err := json.Unmarshal(raw, &choices); err != nil || len(choices) == 0 {
		return Extraction{}, false
	}

	first := choices[0]
	shape, content := ShapeChoicesDelta, ""
	if first.Delta != nil {
		content = first.Delta.Content
	}
	if content == "" && first.Message != nil {
		shape, content = ShapeChoicesMessage, messageText(first.Message)
	}

	// a stop frame ends the content, text riding on it is not part of the answer
	if first.FinishReason == openai.FinishReasonStop {
		return Extraction{Outcome: OutcomeFinished, Shape: shape}, true
	}
	if content == "" {
		return Extraction{}, false
	}
	return Extraction{Outcome: OutcomeContent, Shape: shape, Content: content}, true
}

func messageText(msg *openai.ChatCompletionMessage) string {
	if msg.Content != "" {
		return msg.Content
	}
	var sb strings.Builder
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func probeCandidates(obj map[string]json.RawMessage) (Extraction, bool) {
	raw, ok := obj["candidates"]
	if !ok {
		return Extraction{}, false
	}

	var candidates []*genai.Candidate
	if err := json.Unmarshal(raw, &candidates); err != nil || len(candidates) == 0 {
		return Extraction{}, false
	}

	first := candidates[0]
	if first == nil || first.Content == nil || len(first.Content.Parts) == 0 || first.Content.Parts[0] == nil {
		return Extraction{}, false
	}
	text := first.Content.Parts[0].Text
	if text == "" {
		return Extraction{}, false
	}
	return Extraction{Outcome: OutcomeContent, Shape: ShapeCandidates, Content: text}, true
}

func probeString(key string, shape Shape) probe {
	return func(obj map[string]json.RawMessage) (Extraction, bool) {
		raw, ok := obj[key]
		if !ok {
			return Extraction{}, false
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return Extraction{}, false
		}
		return Extraction{Outcome: OutcomeContent, Shape: shape, Content: s}, true
	}
}
