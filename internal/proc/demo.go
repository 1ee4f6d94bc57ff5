package proc

import (
	"context"
	"fmt"
	"time"

	"github.com/conveyorhq/conveyor/internal/model"
)

// NewDemo reproduces the prototype's placeholder strategy: wait a fixed
// delay, then fail with a message naming the item. It exists to exercise the
// coordinator and the shell without touching any files and is never the
// production default.
func NewDemo(delay time.Duration) Func {
	return func(ctx context.Context, item model.Item) error {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		return fmt.Errorf("demo: slept %s for %s", delay, item)
	}
}
