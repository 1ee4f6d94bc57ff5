package batch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/synctest"
	"time"

	"github.com/conveyorhq/conveyor/internal/batch"
	"github.com/conveyorhq/conveyor/internal/model"

	"github.com/stretchr/testify/require"
)

// waitDone polls the flag the way the presentation shell does, one tick at a
// time, until the run is observed as done.
func waitDone(t *testing.T, c *batch.Coordinator) {
	t.Helper()
	for c.State() != batch.StateDone {
		time.Sleep(10 * time.Millisecond)
	}
}

func items(names ...string) []model.Item {
	ret := make([]model.Item, 0, len(names))
	for _, n := range names {
		ret = append(ret, model.Item(n))
	}
	return ret
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		c := batch.New(func(context.Context, model.Item) error { return nil })
		require.Equal(t, batch.StateUninitialized, c.State())

		// starting before items are staged is rejected, never run
		err := c.Start(t.Context())
		require.ErrorIs(t, err, model.ErrNotReady)
		require.Equal(t, batch.StateUninitialized, c.State())

		c.SetItems(items("a.txt"))
		require.Equal(t, batch.StateInitialized, c.State())

		require.NoError(t, c.Start(t.Context()))

		// a second start must not spawn a second run
		err = c.Start(t.Context())
		require.ErrorIs(t, err, model.ErrNotReady)

		waitDone(t, c)
		require.Equal(t, batch.StateDone, c.State())

		// reads are idempotent
		require.Equal(t, batch.StateDone, c.State())
		first := c.TakeResults()
		require.Len(t, first, 1)
		require.Equal(t, first, c.TakeResults())
	})
}

func TestOutcomesKeepSubmissionOrder(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		// a.txt finishes last and c.txt first, so completion order is the
		// reverse of submission order
		run := func(_ context.Context, item model.Item) error {
			switch item {
			case "a.txt":
				time.Sleep(3 * time.Second)
				return nil
			case "b.txt":
				time.Sleep(2 * time.Second)
				return errors.New("b.txt failed")
			default:
				time.Sleep(1 * time.Second)
				return nil
			}
		}

		c := batch.New(run, batch.WithWorkers(3))
		c.SetItems(items("a.txt", "b.txt", "c.txt"))
		require.NoError(t, c.Start(t.Context()))

		waitDone(t, c)
		outcomes := c.TakeResults()
		require.Len(t, outcomes, 3)
		require.Equal(t, model.Item("a.txt"), outcomes[0].Item)
		require.NoError(t, outcomes[0].Err)
		require.Equal(t, model.Item("b.txt"), outcomes[1].Item)
		require.EqualError(t, outcomes[1].Err, "b.txt failed")
		require.Equal(t, model.Item("c.txt"), outcomes[2].Item)
		require.NoError(t, outcomes[2].Err)

		require.Equal(t, "b.txt failed", model.Summary(outcomes))
	})
}

func TestOrderForLargeBatch(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		const n = 100
		run := func(_ context.Context, item model.Item) error {
			// pseudo random delays to shake the completion order
			time.Sleep(time.Duration(len(item)%7+1) * 100 * time.Millisecond)
			return fmt.Errorf("%s failed", item)
		}

		names := make([]string, n)
		for i := range n {
			names[i] = fmt.Sprintf("item-%03d", i)
		}

		c := batch.New(run, batch.WithWorkers(8))
		c.SetItems(items(names...))
		require.NoError(t, c.Start(t.Context()))

		waitDone(t, c)
		outcomes := c.TakeResults()
		require.Len(t, outcomes, n)
		for i, o := range outcomes {
			require.Equal(t, model.Item(names[i]), o.Item)
			require.EqualError(t, o.Err, names[i]+" failed")
		}
	})
}

func TestEmptyBatch(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		c := batch.New(func(context.Context, model.Item) error { return nil })
		c.SetItems(nil)
		require.NoError(t, c.Start(t.Context()))

		waitDone(t, c)
		outcomes := c.TakeResults()
		require.NotNil(t, outcomes)
		require.Empty(t, outcomes)
	})
}

func TestTakeResultsWhileRunning(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		run := func(_ context.Context, _ model.Item) error {
			time.Sleep(time.Second)
			return nil
		}

		c := batch.New(run)
		c.SetItems(items("a.txt"))
		require.NoError(t, c.Start(t.Context()))

		require.Equal(t, batch.StateRunning, c.State())
		require.Nil(t, c.TakeResults())

		waitDone(t, c)
		outcomes := c.TakeResults()
		require.Len(t, outcomes, 1)
		require.Equal(t, model.Item("a.txt"), outcomes[0].Item)
		require.NoError(t, outcomes[0].Err)
	})
}

func TestBackToBackRunsDoNotLeakOutcomes(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		run := func(_ context.Context, item model.Item) error {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("%s failed", item)
		}

		first := make([]string, 50)
		for i := range first {
			first[i] = fmt.Sprintf("first-%02d", i)
		}
		c := batch.New(run, batch.WithWorkers(4))
		c.SetItems(items(first...))
		require.NoError(t, c.Start(t.Context()))
		waitDone(t, c)
		require.Len(t, c.TakeResults(), len(first))

		// full reset: the drained coordinator is discarded
		c = batch.New(run, batch.WithWorkers(4))

		second := make([]string, 30)
		for i := range second {
			second[i] = fmt.Sprintf("second-%02d", i)
		}
		c.SetItems(items(second...))
		require.NoError(t, c.Start(t.Context()))
		waitDone(t, c)

		outcomes := c.TakeResults()
		require.Len(t, outcomes, len(second))
		for i, o := range outcomes {
			require.Equal(t, model.Item(second[i]), o.Item)
		}
	})
}

func TestSetItemsReplacesStagedItems(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		c := batch.New(func(context.Context, model.Item) error { return nil })
		c.SetItems(items("stale-1", "stale-2", "stale-3"))
		c.SetItems(items("fresh"))
		require.NoError(t, c.Start(t.Context()))

		waitDone(t, c)
		outcomes := c.TakeResults()
		require.Len(t, outcomes, 1)
		require.Equal(t, model.Item("fresh"), outcomes[0].Item)
	})
}

func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "uninitialized", batch.StateUninitialized.String())
	require.Equal(t, "initialized", batch.StateInitialized.String())
	require.Equal(t, "running", batch.StateRunning.String())
	require.Equal(t, "done", batch.StateDone.String())
	require.Equal(t, "state(42)", batch.State(42).String())
}
