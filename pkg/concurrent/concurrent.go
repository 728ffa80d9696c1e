package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fussion/engine/pkg/sequence"
)

// Concurrent runs action for each element of the iterator, at most limit at
// a time (limit <= 0 means unbounded). The first error cancels ctx for the
// remaining actions and is returned.
func Concurrent[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for value := range i.Seq() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return action(gctx, value)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ParallelMap applies mapFn to each element in parallel, preserving order.
// Unlike Concurrent, a failing element does not stop the others: results
// and errors are reported per index. Cancelling ctx stops elements that
// have not started yet; they report ctx.Err().
func ParallelMap[T any, R any](ctx context.Context, i *sequence.Iterator[T], workers int, mapFn func(context.Context, T) (R, error)) ([]R, []error) {
	in := i.Collect()
	out := make([]R, len(in))
	errs := make([]error, len(in))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for idx, val := range in {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[idx] = err
				return nil
			}
			out[idx], errs[idx] = mapFn(ctx, val)
			return nil
		})
	}
	_ = g.Wait()
	return out, errs
}
