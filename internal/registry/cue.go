package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// cueEntry validates payloads against a closed CUE definition. The CUE
// runtime is not safe for concurrent use, so every entry loaded from the
// same context shares one lock.
type cueEntry struct {
	mu     *sync.Mutex
	ctx    *cue.Context
	schema cue.Value
	fields map[string]string
}

// LoadCUEDir registers every #Definition found in the *.cue files of dir
// under its name without the leading '#'. It returns the registered names.
func LoadCUEDir(r *Registry, dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("schema dir: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("glob cue schemas: %w", err)
	}
	sort.Strings(paths)

	ctx := cuecontext.New()
	mu := &sync.Mutex{}

	var names []string
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return names, fmt.Errorf("read %s: %w", path, err)
		}
		loaded, err := registerCUE(r, ctx, mu, src, path)
		names = append(names, loaded...)
		if err != nil {
			return names, err
		}
	}
	return names, nil
}

// RegisterCUE compiles src and registers its definitions.
func RegisterCUE(r *Registry, src []byte, filename string) ([]string, error) {
	return registerCUE(r, cuecontext.New(), &sync.Mutex{}, src, filename)
}

func registerCUE(r *Registry, ctx *cue.Context, mu *sync.Mutex, src []byte, filename string) ([]string, error) {
	mu.Lock()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("compile %s: %w", filename, err)
	}

	iter, err := v.Fields(cue.Definitions(true))
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("walk %s: %w", filename, err)
	}

	type def struct {
		name   string
		schema cue.Value
	}
	var defs []def
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsDefinition() {
			continue
		}
		defs = append(defs, def{
			name:   strings.TrimPrefix(sel.String(), "#"),
			schema: iter.Value(),
		})
	}

	entries := make([]*cueEntry, 0, len(defs))
	for _, d := range defs {
		entries = append(entries, &cueEntry{
			mu:     mu,
			ctx:    ctx,
			schema: d.schema,
			fields: cueFields(d.schema),
		})
	}
	mu.Unlock()

	names := make([]string, 0, len(defs))
	for i, d := range defs {
		if err := r.Register(d.name, entries[i]); err != nil {
			return names, err
		}
		names = append(names, d.name)
	}
	return names, nil
}

// Decode checks the payload's keys against the schema before compiling it.
// The shared CUE runtime interns every label it sees, so keys the schema
// does not allow never reach it.
func (e *cueEntry) Decode(raw json.RawMessage) (json.RawMessage, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", doc)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkKeys(e.schema, doc, ""); err != nil {
		return nil, err
	}
	data := e.ctx.CompileBytes(raw)
	if err := data.Err(); err != nil {
		return nil, err
	}

	unified := e.schema.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}
	out, err := unified.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkKeys walks doc alongside schema and rejects the first object key the
// schema does not allow. Disjunctions and non-struct schemas are left to CUE.
func checkKeys(schema cue.Value, doc any, path string) error {
	switch v := doc.(type) {
	case map[string]any:
		if schema.IncompleteKind() != cue.StructKind {
			return nil
		}
		if op, _ := schema.Expr(); op == cue.OrOp {
			return nil
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sel := cue.Str(k)
			if !schema.Allows(sel) {
				return fmt.Errorf("field not allowed: %s%s", path, k)
			}
			sub := schema.LookupPath(cue.MakePath(sel))
			if !sub.Exists() {
				continue
			}
			if err := checkKeys(sub, v[k], path+k+"."); err != nil {
				return err
			}
		}
	case []any:
		elem := schema.LookupPath(cue.MakePath(cue.AnyIndex))
		if !elem.Exists() {
			return nil
		}
		for i, item := range v {
			if err := checkKeys(elem, item, path+strconv.Itoa(i)+"."); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *cueEntry) Fields() map[string]string {
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

func cueFields(schema cue.Value) map[string]string {
	fields := make(map[string]string)
	iter, err := schema.Fields(cue.Optional(true))
	if err != nil {
		return fields
	}
	for iter.Next() {
		name := strings.TrimRight(iter.Selector().String(), "?!")
		if unquoted, err := strconv.Unquote(name); err == nil {
			name = unquoted
		}
		fields[name] = iter.Value().IncompleteKind().String()
	}
	return fields
}
