package stream

import (
	"strings"
	"unicode/utf8"

	"golang-stock-ai/pkg/common"
)

type LineKind int

const (
	LineIgnore LineKind = iota
	LineTerminal
	LineCandidate
)

func (k LineKind) String() string {
	switch k {
	case LineTerminal:
		return "terminal"
	case LineCandidate:
		return "candidate"
	default:
		return "ignore"
	}
}

// Line is a classified stream line. Text is set only for candidates.
type Line struct {
	Kind LineKind
	Text string
}

var sseFieldPrefixes = []string{"event:", "id:", "retry:"}

// Classify strips SSE framing from one line and decides whether what is left may carry content.
func Classify(raw string) Line {
	line := strings.TrimSpace(raw)
	if line == "" {
		return Line{Kind: LineIgnore}
	}
	if line == common.DONE_SENTINEL {
		return Line{Kind: LineTerminal}
	}
	if isSentinelFragment(line) {
		return Line{Kind: LineIgnore}
	}

	if rest, ok := strings.CutPrefix(line, common.SSE_DATA_PREFIX); ok {
		line = strings.TrimSpace(rest)
		if line == "" {
			return Line{Kind: LineIgnore}
		}
		if line == common.DONE_SENTINEL {
			return Line{Kind: LineTerminal}
		}
	} else if strings.HasPrefix(line, ":") || hasSSEFieldPrefix(line) {
		return Line{Kind: LineIgnore}
	}

	if utf8.RuneCountInString(line) == 1 && line != "{" && line != "[" {
		return Line{Kind: LineIgnore}
	}

	return Line{Kind: LineCandidate, Text: line}
}

// isSentinelFragment matches a lone character of "[DONE]", which some proxies split across lines.
func isSentinelFragment(line string) bool {
	if len(line) != 1 {
		return false
	}
	return strings.Contains(common.DONE_SENTINEL, line)
}

func hasSSEFieldPrefix(line string) bool {
	for _, p := range sseFieldPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
