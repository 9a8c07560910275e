package apiclient

import "context"

// Future is the pending result of a call started with Go.
type Future[T any] struct {
	done  chan struct{}
	value T
	meta  Meta
	err   error
}

// Go starts req in its own goroutine. The call always runs to completion and
// reports its outcome, whether or not anyone awaits it.
func Go[T any](ctx context.Context, e *Executor, req Request) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.meta, f.err = Call[T](ctx, e, req)
	}()
	return f
}

// Done is closed once the call has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the call finishes or ctx is done. Giving up on the
// wait does not cancel the call.
func (f *Future[T]) Await(ctx context.Context) (T, Meta, error) {
	select {
	case <-f.done:
		return f.value, f.meta, f.err
	case <-ctx.Done():
		var zero T
		return zero, Meta{}, ctx.Err()
	}
}
