// Package parallel runs independent per-row work on a bounded pool.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Slot is the outcome for one input index.
type Slot[T any] struct {
	Value T
	Err   error
	// Done is false for indices never started because the context ended.
	Done bool
}

// Run calls fn for every index in [0, n) with at most workers calls in
// flight. A failing or panicking call only fills its own slot. When ctx is
// cancelled no new calls start; slots already produced are returned along
// with the context error.
func Run[T any](ctx context.Context, n, workers int, fn func(ctx context.Context, i int) (T, error)) ([]Slot[T], error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	slots := make([]Slot[T], n)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = call(ctx, i, fn)
			return nil
		})
	}
	_ = g.Wait()
	return slots, ctx.Err()
}

func call[T any](ctx context.Context, i int, fn func(ctx context.Context, i int) (T, error)) (slot Slot[T]) {
	defer func() {
		if r := recover(); r != nil {
			slot = Slot[T]{Err: fmt.Errorf("row %d: panic: %v", i, r), Done: true}
		}
	}()
	v, err := fn(ctx, i)
	return Slot[T]{Value: v, Err: err, Done: true}
}
