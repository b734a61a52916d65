// Package storage keeps JSON documents as named objects in a single bucket.
// Names are hierarchical paths separated by '/'.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("object not found")

// Object is a stored blob.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
	Updated     time.Time
}

// Bucket is a flat namespace of objects addressed by name. List and Names
// return objects whose names start with prefix, sorted by name.
type Bucket interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Get(ctx context.Context, name string) (Object, error)
	Names(ctx context.Context, prefix string) ([]string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, name string) error
	Ping(ctx context.Context) error
	Close() error
}

// Error wraps a backend failure.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Name: name, Err: err}
}
