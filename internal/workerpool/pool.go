// Package workerpool runs a per-item operation over a fixed slice with a
// bounded number of concurrent runners.
//
// Results are positionally aligned with the input. A failing or panicking
// item yields an error in its own slot and never stops the other runners.
package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one item. Exactly one of Value or Err is meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

// OK reports whether the item succeeded
func (r Result[R]) OK() bool {
	return r.Err == nil
}

// Func processes one item. index is the item's position in the input.
type Func[T, R any] func(ctx context.Context, item T, index int) (R, error)

// PanicError is stored in a Result when the worker panicked
type PanicError struct {
	Index int
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panicked on item %d: %v", e.Index, e.Value)
}

// EffectiveConcurrency clamps n to [1, max(1, items)]
func EffectiveConcurrency(n, items int) int {
	upper := items
	if upper < 1 {
		upper = 1
	}
	if n < 1 {
		return 1
	}
	if n > upper {
		return upper
	}
	return n
}

// Run invokes fn for every element of items with at most concurrency calls
// in flight and returns once all of them have finished.
//
// Runners share a cursor and claim indices in ascending order. Items claimed
// after ctx is done are not run; their slot holds ctx.Err().
func Run[T, R any](ctx context.Context, items []T, concurrency int, fn Func[T, R]) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	var (
		cursor atomic.Int64
		g      errgroup.Group
		total  = int64(len(items))
	)

	runners := EffectiveConcurrency(concurrency, len(items))
	for r := 0; r < runners; r++ {
		g.Go(func() error {
			for {
				i := cursor.Add(1) - 1
				if i >= total {
					return nil
				}
				if err := ctx.Err(); err != nil {
					results[i] = Result[R]{Err: err}
					continue
				}
				results[i] = invoke(ctx, items[i], int(i), fn)
			}
		})
	}

	// Runners never return an error; Wait only joins them.
	_ = g.Wait()
	return results
}

func invoke[T, R any](ctx context.Context, item T, index int, fn Func[T, R]) (res Result[R]) {
	defer func() {
		if p := recover(); p != nil {
			res = Result[R]{Err: &PanicError{Index: index, Value: p, Stack: debug.Stack()}}
		}
	}()

	value, err := fn(ctx, item, index)
	if err != nil {
		return Result[R]{Err: err}
	}
	return Result[R]{Value: value}
}
