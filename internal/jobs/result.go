package jobs

import (
	"context"
	"sync"
)

// Result is a one-shot promise for a job's terminal message: it is resolved
// exactly once and every Wait observes the same message.
type Result struct {
	once sync.Once
	done chan struct{}
	msg  string
}

// NewResult returns an unresolved Result.
func NewResult() *Result {
	return &Result{done: make(chan struct{})}
}

// Resolve stores msg and wakes all waiters. Only the first call has any
// effect; it reports whether this call was the one that resolved r.
func (r *Result) Resolve(msg string) bool {
	resolved := false
	r.once.Do(func() {
		r.msg = msg
		resolved = true
		close(r.done)
	})
	return resolved
}

// Done is closed once the result is resolved.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result is resolved or ctx is done.
func (r *Result) Wait(ctx context.Context) (string, error) {
	select {
	case <-r.done:
		return r.msg, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Peek returns the message without blocking; ok is false while unresolved.
func (r *Result) Peek() (msg string, ok bool) {
	select {
	case <-r.done:
		return r.msg, true
	default:
		return "", false
	}
}
