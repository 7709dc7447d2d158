package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks_CoversRangeOnce(t *testing.T) {
	for _, tc := range []struct{ n, workers int }{
		{0, 4}, {1, 4}, {7, 3}, {100, 8}, {5, 0}, {3, 10},
	} {
		hits := make([]int32, tc.n)
		err := Chunks(context.Background(), tc.n, tc.workers, func(_ context.Context, lo, hi int) error {
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
			return nil
		})
		require.NoError(t, err)
		for i, h := range hits {
			assert.Equal(t, int32(1), h, "n=%d workers=%d index %d", tc.n, tc.workers, i)
		}
	}
}

func TestChunks_Error(t *testing.T) {
	boom := errors.New("boom")
	err := Chunks(context.Background(), 10, 2, func(_ context.Context, lo, _ int) error {
		if lo == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestChunks_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Chunks(ctx, 10, 2, func(context.Context, int, int) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	assert.ErrorIs(t, Chunks(ctx, 0, 2, nil), context.Canceled)
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3))
	assert.Positive(t, Workers(0))
	assert.Positive(t, Workers(-1))
}
