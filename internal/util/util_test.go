package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSleepElapses(t *testing.T) {
	t.Parallel()

	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestJitterBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		d := Jitter(time.Second, 3*time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 3*time.Second)
	}

	assert.Equal(t, 2*time.Second, Jitter(2*time.Second, time.Second))
}

func TestAgo(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "", Ago(now, time.Time{}))
	assert.Equal(t, "30s ago", Ago(now, now.Add(-30*time.Second)))
	assert.Equal(t, "5m0s ago", Ago(now, now.Add(-5*time.Minute)))
	assert.Equal(t, "2h0m0s ago", Ago(now, now.Add(-2*time.Hour)))
	assert.Equal(t, "yes", YesNo(true))
	assert.Equal(t, "no", YesNo(false))
}
