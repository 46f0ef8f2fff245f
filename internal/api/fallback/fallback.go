// Package fallback races a unit of work against a timer and substitutes a
// default value when the timer wins or the work fails.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout reports that the work did not finish before the deadline.
var ErrTimeout = errors.New("operation timed out")

type result[T any] struct {
	val T
	err error
}

// Run executes fn with a context bounded by timeout. It returns fn's value on
// success, or def together with the cause on timeout, error or panic.
//
// The late result of an abandoned call is written into a buffered channel that
// nobody reads, so fn must never mutate state owned by the caller; callers
// apply results only after Run returns.
func Run[T any](ctx context.Context, timeout time.Duration, def T, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return call(ctx, def, fn)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := call(ctx, def, fn)
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return def, r.err
		}
		return r.val, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return def, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return def, ctx.Err()
	}
}

func call[T any](ctx context.Context, def T, fn func(ctx context.Context) (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = def, fmt.Errorf("recovered from panic: %v", p)
		}
	}()
	return fn(ctx)
}
