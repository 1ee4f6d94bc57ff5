package parallel_test

import (
	"context"
	"fmt"
	"testing"
	"testing/synctest"
	"time"

	"github.com/conveyorhq/conveyor/internal/parallel"

	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Parallel()

	f := func(_ context.Context, d time.Duration) (int, error) {
		time.Sleep(d)
		return int(d), nil
	}

	input := []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}
	expected := []parallel.Result[int]{
		{Value: int(1 * time.Second)},
		{Value: int(2 * time.Second)},
		{Value: int(5 * time.Second)},
		{Value: int(10 * time.Second)},
	}

	var testCases = []struct {
		scenario string
		limit    int
		then     time.Duration
	}{
		{"limit 1", 1, 18 * time.Second},
		{"limit 2", 2, 12 * time.Second},
		{"limit 10", 10, 10 * time.Second},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				start := time.Now()
				out := parallel.Map(t.Context(), tt.limit, input, f)
				require.Equal(t, expected, out)
				require.Equal(t, tt.then, time.Since(start))
			})
		})
	}
}

func TestMapKeepsInputOrder(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		// earlier items sleep longer, so completion order is reversed
		input := []int{5, 4, 3, 2, 1}
		out := parallel.Map(t.Context(), len(input), input, func(_ context.Context, n int) (int, error) {
			time.Sleep(time.Duration(n) * time.Second)
			return n * 10, nil
		})
		for i, n := range input {
			require.Equal(t, n*10, out[i].Value)
			require.NoError(t, out[i].Err)
		}
	})
}

func TestMapErrorsAreData(t *testing.T) {
	t.Parallel()

	input := []string{"a", "b", "c"}
	out := parallel.Map(t.Context(), 2, input, func(_ context.Context, s string) (string, error) {
		if s == "b" {
			return "", fmt.Errorf("%s failed", s)
		}
		return s + "!", nil
	})

	require.Len(t, out, 3)
	require.NoError(t, out[0].Err)
	require.Equal(t, "a!", out[0].Value)
	require.EqualError(t, out[1].Err, "b failed")
	require.NoError(t, out[2].Err)
	require.Equal(t, "c!", out[2].Value)
}

func TestMapCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	out := parallel.Map(ctx, 1, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	for _, r := range out {
		require.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestMapEmptyInput(t *testing.T) {
	t.Parallel()

	out := parallel.Map(t.Context(), 4, nil, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	require.Empty(t, out)
}
