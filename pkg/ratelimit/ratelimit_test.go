package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rewards-controlplane/pkg/config"
)

func TestWindowStartAligned(t *testing.T) {
	window := time.Minute
	base := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	first := WindowStart(base.Add(5*time.Second), window)
	second := WindowStart(base.Add(59*time.Second), window)
	next := WindowStart(base.Add(61*time.Second), window)

	require.Equal(t, first, second)
	require.NotEqual(t, first, next)
	require.Equal(t, first+60, next)
}

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.Enable = false

	limiter := NewRedisLimiter(Params{Config: cfg})

	for i := 0; i < 10; i++ {
		ok, err := limiter.Allow(context.Background(), "cashier-1")
		require.NoError(t, err)
		require.True(t, ok)
	}
}
