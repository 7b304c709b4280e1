package closer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClose_RunsInReverseOrder(t *testing.T) {
	c := NewCloser()
	var order []string
	c.AddErr("first", func() error { order = append(order, "first"); return nil })
	c.AddErr("second", func() error { order = append(order, "second"); return nil })

	require.NoError(t, c.Close(context.Background()))
	require.Equal(t, []string{"second", "first"}, order)
}

func TestClose_CollectsErrorsAndRunsOnce(t *testing.T) {
	c := NewCloser()
	calls := 0
	boom := errors.New("boom")
	c.AddErr("redis", func() error { calls++; return boom })

	err := c.Close(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "redis")

	require.NoError(t, c.Close(context.Background()))
	require.Equal(t, 1, calls)
}

func TestClose_StopsWaitingWhenContextExpires(t *testing.T) {
	c := NewCloser()
	c.Add("fast", func(context.Context) error { return nil })
	c.Add("slow", func(ctx context.Context) error {
		<-time.After(time.Second)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "slow")
	require.Contains(t, err.Error(), "fast: skipped")
}
