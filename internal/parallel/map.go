package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result pairs a mapped value with the error produced for the same input.
type Result[D any] struct {
	Value D
	Err   error
}

// Map runs mapFunc over every element of in using at most limit concurrent
// workers and returns results indexed by input position, so a parallel
// fan-out never reorders outputs relative to their inputs.
//
// A per-element error is captured in its Result and never stops the other
// elements. Map is context aware: once ctx is done, elements that have not
// started yet report ctx.Err() instead of being processed.
func Map[E, D any](ctx context.Context, limit int, in []E, mapFunc func(context.Context, E) (D, error)) []Result[D] {
	if limit < 1 {
		limit = 1
	}

	out := make([]Result[D], len(in))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, e := range in {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i] = Result[D]{Err: err}
				return nil
			}
			d, err := mapFunc(gctx, e)
			out[i] = Result[D]{Value: d, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return out
}
