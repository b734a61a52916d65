// Package registry maps message type names to the shapes incoming payloads
// are decoded into before they are published.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Entry is one registered message type.
type Entry interface {
	// Decode checks raw against the shape and returns the normalized JSON.
	Decode(raw json.RawMessage) (json.RawMessage, error)
	// Fields maps each top-level field name to a type name.
	Fields() map[string]string
}

// Decoded is a payload accepted by a registered type.
type Decoded struct {
	Type    string
	Payload json.RawMessage
	Fields  map[string]string
}

var errEmptyPayload = errors.New("message payload is empty")

// reservedNames are the fixed keys of a publish response, which also carries
// the type name as a key.
var reservedNames = map[string]bool{
	"messageId": true,
	"topic":     true,
	"payload":   true,
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entry. Names are unique for the life of the registry.
func (r *Registry) Register(name string, e Entry) error {
	if name == "" {
		return errors.New("registry: empty type name")
	}
	if reservedNames[name] {
		return fmt.Errorf("registry: type name %q is reserved", name)
	}
	if e == nil {
		return fmt.Errorf("registry: nil entry for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("registry: type %q already registered", name)
	}
	r.entries[name] = e
	return nil
}

func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode resolves name and decodes raw with it. It returns *UnknownTypeError
// or *DecodeError on failure.
func (r *Registry) Decode(name string, raw json.RawMessage) (Decoded, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return Decoded{}, &UnknownTypeError{Name: name}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Decoded{}, &DecodeError{Name: name, Err: errEmptyPayload}
	}

	payload, err := e.Decode(trimmed)
	if err != nil {
		return Decoded{}, &DecodeError{Name: name, Err: err}
	}
	return Decoded{Type: name, Payload: payload, Fields: e.Fields()}, nil
}
