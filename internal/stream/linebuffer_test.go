package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineBuffer_Feed(t *testing.T) {
	b := newLineBuffer(0)

	assert.Equal(t, []string{`data: {"text":"a"}`}, b.Feed([]byte("data: {\"text\":\"a\"}\ndata: {\"te")))
	assert.Equal(t, 10, b.Pending())

	assert.Equal(t, []string{`data: {"text":"b"}`, ""}, b.Feed([]byte("xt\":\"b\"}\n\n")))
	assert.Zero(t, b.Pending())
}

func TestLineBuffer_SelfContainedRemainder(t *testing.T) {
	b := newLineBuffer(0)

	assert.Equal(t, []string{`data: {"text":"tail"}`}, b.Feed([]byte(`data: {"text":"tail"}`)))
	assert.Equal(t, []string{"data: [DONE]"}, b.Feed([]byte("data: [DONE]")))
	assert.Empty(t, b.Feed([]byte("data: [DO")))
	assert.Equal(t, []string{"data: [DONE]"}, b.Feed([]byte("NE]\n")))
}

func TestLineBuffer_ScalarRemainderIsHeld(t *testing.T) {
	b := newLineBuffer(0)

	assert.Empty(t, b.Feed([]byte("data: 12")))
	assert.Equal(t, "data: 12", b.Flush())
	assert.Equal(t, "", b.Flush())
}

func TestLineBuffer_SplitRune(t *testing.T) {
	b := newLineBuffer(0)
	line := "{\"text\":\"买入\"}\n"

	var got []string
	for i := 0; i < len(line); i++ {
		got = append(got, b.Feed([]byte{line[i]})...)
	}
	// the object is complete before its newline arrives, so it is released early
	assert.Equal(t, []string{`{"text":"买入"}`, ""}, got)
}

func TestLineBuffer_FlushDropsPartialRune(t *testing.T) {
	b := newLineBuffer(0)
	buy := []byte("买")

	b.Feed(append([]byte(`{"text":"`), buy[:2]...))
	assert.Equal(t, `{"text":"`, b.Flush())
}

func TestLineBuffer_MaxPending(t *testing.T) {
	b := newLineBuffer(8)

	assert.Empty(t, b.Feed([]byte("{\"a\":")))
	assert.Equal(t, []string{`{"a":"0123`}, b.Feed([]byte(`"0123`)))
	assert.Zero(t, b.Pending())
}
