package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil(t *testing.T) {
	t.Run("returns as soon as condition holds", func(t *testing.T) {
		calls := 0
		err := Until(context.Background(), time.Second, func(context.Context) (bool, error) {
			calls++
			return calls == 3, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("times out no earlier than the bound", func(t *testing.T) {
		start := time.Now()
		err := Until(context.Background(), 250*time.Millisecond, func(context.Context) (bool, error) {
			return false, nil
		})

		assert.ErrorIs(t, err, ErrTimeout)
		assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
		assert.Less(t, time.Since(start), 250*time.Millisecond+3*DefaultInterval)
	})

	t.Run("condition error aborts the wait", func(t *testing.T) {
		boom := errors.New("boom")
		err := Until(context.Background(), time.Second, func(context.Context) (bool, error) {
			return false, boom
		})

		assert.ErrorIs(t, err, boom)
	})

	t.Run("context cancellation ends the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Until(ctx, time.Second, func(context.Context) (bool, error) {
			return false, nil
		})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
	require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
