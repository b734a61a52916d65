package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBucket keeps objects in a map. Used for development and tests.
type MemoryBucket struct {
	mu      sync.RWMutex
	objects map[string]Object
	now     func() time.Time
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{objects: make(map[string]Object), now: time.Now}
}

func (b *MemoryBucket) Put(ctx context.Context, name, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return wrap("put", name, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = Object{
		Name:        name,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
		Updated:     b.now().UTC(),
	}
	return nil
}

func (b *MemoryBucket) Get(ctx context.Context, name string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, wrap("get", name, err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[name]
	if !ok {
		return Object{}, wrap("get", name, ErrNotFound)
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, nil
}

func (b *MemoryBucket) Names(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("list", prefix, err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var names []string
	for name := range b.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b *MemoryBucket) List(ctx context.Context, prefix string) ([]Object, error) {
	names, err := b.Names(ctx, prefix)
	if err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Object, 0, len(names))
	for _, name := range names {
		obj, ok := b.objects[name]
		if !ok {
			continue
		}
		obj.Data = append([]byte(nil), obj.Data...)
		out = append(out, obj)
	}
	return out, nil
}

func (b *MemoryBucket) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return wrap("delete", name, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[name]; !ok {
		return wrap("delete", name, ErrNotFound)
	}
	delete(b.objects, name)
	return nil
}

func (b *MemoryBucket) Ping(context.Context) error { return nil }

func (b *MemoryBucket) Close() error { return nil }
