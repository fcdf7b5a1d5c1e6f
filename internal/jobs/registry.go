package jobs

import (
	"context"
	"sync"

	"github.com/muurk/wanctl/internal/metrics"
)

// Registry maps job identifiers to their pending results. An entry is
// removed by the poll that consumes it, so each identifier resolves for
// exactly one caller.
//
// Entries that are never polled stay until the process exits; Len exposes
// how many are outstanding.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Result
	metrics *metrics.Registry
}

// NewRegistry creates an empty registry reporting to the global metrics.
func NewRegistry() *Registry {
	return newRegistry(metrics.Get())
}

func newRegistry(m *metrics.Registry) *Registry {
	return &Registry{
		entries: make(map[string]*Result),
		metrics: m,
	}
}

// Register adds a result under id. The caller guarantees id is fresh.
func (r *Registry) Register(id string, res *Result) {
	r.mu.Lock()
	r.entries[id] = res
	r.updateGauge()
	r.mu.Unlock()
}

// Take removes and returns the result for id.
func (r *Registry) Take(id string) (*Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
		r.updateGauge()
	}
	return res, ok
}

// Poll consumes the entry for id and blocks until its message is available.
// found is false for unknown (or already consumed) identifiers, in which
// case Poll returns immediately. The registry lock is not held while
// waiting.
//
// If ctx ends before the job finishes the entry is put back, so a poller
// that gave up does not lose the result for the next one.
func (r *Registry) Poll(ctx context.Context, id string) (msg string, found bool, err error) {
	res, ok := r.Take(id)
	if !ok {
		return "", false, nil
	}

	msg, err = res.Wait(ctx)
	if err != nil {
		r.Release(id, res)
		return "", true, err
	}
	return msg, true, nil
}

// Len returns the number of unconsumed entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Release puts back an entry obtained with Take that the caller could not
// deliver, unless the identifier has been registered again meanwhile.
func (r *Registry) Release(id string, res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; !exists {
		r.entries[id] = res
		r.updateGauge()
	}
}

// updateGauge must be called with mu held.
func (r *Registry) updateGauge() {
	if r.metrics != nil {
		r.metrics.JobsPending.Set(float64(len(r.entries)))
	}
}
