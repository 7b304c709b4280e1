package jitter

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelay_StaysWithinBounds(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Second).WithSource(rand.NewSource(1))

	for attempt := 0; attempt < 8; attempt++ {
		base := 100 * time.Millisecond << attempt
		if base > time.Second {
			base = time.Second
		}

		d := b.Delay(attempt)
		require.GreaterOrEqual(t, d, base)
		require.LessOrEqual(t, d, base+time.Duration(float64(base)*DefaultFactor))
	}
}

func TestBackoffDelay_NoJitterWhenFactorZero(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 40*time.Millisecond)
	b.Factor = 0

	require.Equal(t, 10*time.Millisecond, b.Delay(0))
	require.Equal(t, 20*time.Millisecond, b.Delay(1))
	require.Equal(t, 40*time.Millisecond, b.Delay(2))
	require.Equal(t, 40*time.Millisecond, b.Delay(10))
}

func TestBackoffWait_ReturnsOnCancel(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, b.Wait(ctx, 0), context.Canceled)
}
