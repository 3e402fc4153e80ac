package utils

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	// "买" is three bytes, a cut inside it backs off to the rune start
	assert.Equal(t, "a...", Truncate("a买入", 2))
}

func TestErrorCategory(t *testing.T) {
	var arr []int
	runtimeErr := func() (r interface{}) {
		defer func() { r = recover() }()
		_ = arr[3]
		return nil
	}()

	assert.Equal(t, "*errors.errorString", ErrorCategory(errors.New("secret token in message")))
	assert.Equal(t, "*errors.errorString", ErrorCategory(io.EOF))
	assert.Equal(t, "runtime_error", ErrorCategory(runtimeErr))
	assert.Equal(t, "panic(string)", ErrorCategory("boom"))
	assert.Equal(t, "unknown", ErrorCategory(nil))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"600519", "000001", "AAPL"}, UniqueStrings([]string{"600519", "000001", "600519", "AAPL", "000001"}))
	assert.Empty(t, UniqueStrings(nil))
}

func TestSameTradingDay(t *testing.T) {
	loc := GetMarketLocation("Asia/Shanghai")
	morning := time.Date(2024, 3, 1, 9, 30, 0, 0, loc).Unix()
	afternoon := time.Date(2024, 3, 1, 14, 0, 0, 0, loc).Unix()
	nextDay := time.Date(2024, 3, 4, 9, 30, 0, 0, loc).Unix()

	assert.True(t, SameTradingDay(morning, afternoon, loc))
	assert.False(t, SameTradingDay(afternoon, nextDay, loc))
}
