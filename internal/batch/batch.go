// Package batch runs one operation per item with bounded concurrency and keeps
// a result per item, so a failing item never aborts the rest.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of running an operation for a single item.
type Outcome[T any] struct {
	Item  string
	Value T
	Err   error
}

// Run calls fn for every item with at most limit calls in flight (limit <= 0
// means unbounded). Items not yet dispatched when ctx is done get ctx.Err().
// Outcomes are returned in input order.
func Run[T any](ctx context.Context, items []string, limit int, fn func(ctx context.Context, item string) (T, error)) []Outcome[T] {
	out := make([]Outcome[T], len(items))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		out[i].Item = item
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		g.Go(func() error {
			v, err := fn(ctx, item)
			out[i].Value = v
			out[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Failed returns the outcomes that carry an error.
func Failed[T any](outcomes []Outcome[T]) []Outcome[T] {
	var failed []Outcome[T]
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
