package storage

import (
	"context"
	"errors"

	"reggie/internal/metrics"
)

type instrumented struct {
	Bucket
	driver string
}

// Instrument counts every operation on b in metrics.StorageOperations.
// A missing object counts as "not_found" rather than an error.
func Instrument(b Bucket, driver string) Bucket {
	return &instrumented{Bucket: b, driver: driver}
}

func (i *instrumented) observe(op string, err error) {
	result := metrics.Result(err)
	if errors.Is(err, ErrNotFound) {
		result = "not_found"
	}
	metrics.StorageOperations.WithLabelValues(i.driver, op, result).Inc()
}

func (i *instrumented) Put(ctx context.Context, name, contentType string, data []byte) error {
	err := i.Bucket.Put(ctx, name, contentType, data)
	i.observe("put", err)
	return err
}

func (i *instrumented) Get(ctx context.Context, name string) (Object, error) {
	obj, err := i.Bucket.Get(ctx, name)
	i.observe("get", err)
	return obj, err
}

func (i *instrumented) Names(ctx context.Context, prefix string) ([]string, error) {
	names, err := i.Bucket.Names(ctx, prefix)
	i.observe("names", err)
	return names, err
}

func (i *instrumented) List(ctx context.Context, prefix string) ([]Object, error) {
	objects, err := i.Bucket.List(ctx, prefix)
	i.observe("list", err)
	return objects, err
}

func (i *instrumented) Delete(ctx context.Context, name string) error {
	err := i.Bucket.Delete(ctx, name)
	i.observe("delete", err)
	return err
}
