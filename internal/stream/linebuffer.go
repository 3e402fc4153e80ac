package stream

import (
	"bytes"
	"encoding/json"

	"golang-stock-ai/pkg/utils"
)

// lineBuffer splits raw chunks into lines. A trailing piece without a newline is held back until
// the next chunk completes it, unless it already stands on its own.
type lineBuffer struct {
	pending    []byte
	maxPending int
}

func newLineBuffer(maxPending int) *lineBuffer {
	return &lineBuffer{maxPending: maxPending}
}

func (b *lineBuffer) Feed(chunk []byte) []string {
	b.pending = append(b.pending, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(b.pending[:i]))
		b.pending = b.pending[i+1:]
	}

	if len(b.pending) == 0 {
		b.pending = nil
		return lines
	}

	rest := string(b.pending)
	if selfContained(rest) || (b.maxPending > 0 && len(b.pending) > b.maxPending) {
		lines = append(lines, utils.CleanToValidUTF8(rest))
		b.pending = nil
	}
	return lines
}

// Flush hands back whatever is still held, dropping a dangling partial rune.
func (b *lineBuffer) Flush() string {
	rest := utils.CleanToValidUTF8(string(b.pending))
	b.pending = nil
	return rest
}

func (b *lineBuffer) Pending() int {
	return len(b.pending)
}

func selfContained(rest string) bool {
	line := Classify(rest)
	switch line.Kind {
	case LineTerminal:
		return true
	case LineCandidate:
		text := line.Text
		return (text[0] == '{' || text[0] == '[') && json.Valid([]byte(text))
	default:
		return false
	}
}
