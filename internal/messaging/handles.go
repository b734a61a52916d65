package messaging

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"reggie/internal/metrics"
)

// DefaultOpenTimeout bounds a single handle open.
const DefaultOpenTimeout = 30 * time.Second

// Handles caches one open handle per destination name. Opens run outside the
// cache lock and are deduplicated per name, so concurrent first use of a name
// opens it once while other names stay available.
type Handles[H comparable] struct {
	transport   string
	open        func(ctx context.Context, name string) (H, error)
	openTimeout time.Duration

	group singleflight.Group

	mu    sync.Mutex
	items map[string]H
}

func NewHandles[H comparable](transport string, open func(ctx context.Context, name string) (H, error)) *Handles[H] {
	return &Handles[H]{
		transport:   transport,
		open:        open,
		openTimeout: DefaultOpenTimeout,
		items:       make(map[string]H),
	}
}

func (h *Handles[H]) cached(name string) (H, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.items[name]
	return v, ok
}

// Get returns the cached handle for name, opening it on first use. Failed
// opens are not cached. A caller whose ctx ends while the open is in flight
// returns ctx.Err(); the open itself keeps running for the other waiters,
// bounded by the open timeout.
func (h *Handles[H]) Get(ctx context.Context, name string) (H, error) {
	var zero H
	if v, ok := h.cached(name); ok {
		return v, nil
	}

	ch := h.group.DoChan(name, func() (any, error) {
		// a previous flight may have stored the handle after our lookup
		if v, ok := h.cached(name); ok {
			return v, nil
		}

		openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.openTimeout)
		defer cancel()
		v, err := h.open(openCtx, name)
		if err != nil {
			return zero, err
		}

		h.mu.Lock()
		h.items[name] = v
		h.mu.Unlock()
		metrics.PublisherHandles.WithLabelValues(h.transport).Inc()
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(H), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Evict drops v from the cache if it is still the handle for name, then
// closes it.
func (h *Handles[H]) Evict(name string, v H, closeFn func(H) error) error {
	h.mu.Lock()
	cur, ok := h.items[name]
	ok = ok && cur == v
	if ok {
		delete(h.items, name)
		metrics.PublisherHandles.WithLabelValues(h.transport).Dec()
	}
	h.mu.Unlock()

	if !ok || closeFn == nil {
		return nil
	}
	return closeFn(v)
}

// Len reports the number of open handles.
func (h *Handles[H]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Names lists the destinations with an open handle, sorted.
func (h *Handles[H]) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.items))
	for name := range h.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every handle and empties the cache.
func (h *Handles[H]) Close(closeFn func(name string, v H) error) error {
	h.mu.Lock()
	items := h.items
	h.items = make(map[string]H)
	h.mu.Unlock()

	metrics.PublisherHandles.WithLabelValues(h.transport).Sub(float64(len(items)))

	var errs []error
	for name, v := range items {
		if err := closeFn(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
