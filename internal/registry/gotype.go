package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

type goEntry struct {
	typ    reflect.Type
	fields map[string]string
}

// RegisterType registers the struct type T under name. Payloads are decoded
// into a fresh T with unknown fields rejected, then re-encoded.
func RegisterType[T any](r *Registry, name string) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("registry: %s is %s, want struct", t, t.Kind())
	}
	return r.Register(name, &goEntry{typ: t, fields: structFields(t)})
}

func (e *goEntry) Decode(raw json.RawMessage) (json.RawMessage, error) {
	v := reflect.New(e.typ).Interface()

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after message payload")
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *goEntry) Fields() map[string]string {
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

func structFields(t reflect.Type) map[string]string {
	fields := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields[name] = f.Type.String()
	}
	return fields
}
