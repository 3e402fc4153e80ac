package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterStore_GetLimiter(t *testing.T) {
	s := NewPerMinuteLimiterStore(60)

	a := s.GetLimiter("api.openai.com")
	b := s.GetLimiter("api.openai.com")
	c := s.GetLimiter("query1.finance.yahoo.com")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestLimiterStore_Wait(t *testing.T) {
	s := NewPerMinuteLimiterStore(0)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Wait(context.Background(), "unlimited"))
	}
}
