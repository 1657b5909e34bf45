package guard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single content-generation call.
const DefaultTimeout = 15 * time.Second

// ErrTimeout indicates the generation call did not settle within the bound.
var ErrTimeout = errors.New("generation call timed out")

type settled[T any] struct {
	value T
	err   error
}

// Race runs op and returns whichever settles first: the op, the timer or the parent context.
// When the timer wins the op keeps running in its goroutine and its result is dropped;
// its context is cancelled so transports that honour it can stop early.
func Race[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if op == nil {
		return zero, errors.New("guard: operation must not be nil")
	}
	if d <= 0 {
		d = DefaultTimeout
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := time.NewTimer(d)
	defer timer.Stop()

	// Buffered so an orphaned op never blocks on send.
	done := make(chan settled[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- settled[T]{err: fmt.Errorf("guard: operation panicked: %v", r)}
			}
		}()
		value, err := op(opCtx)
		done <- settled[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-timer.C:
		return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
