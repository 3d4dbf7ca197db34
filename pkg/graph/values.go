package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/flowgraph/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// Values is the graph-wide key/value store. It has its own lock so commands
// and hosts can use it while walks are running.
type Values struct {
	mu     sync.RWMutex
	data   map[string]any
	schema schema.Schema
}

// NewValues creates a store. Keys declared in s are type checked on Set.
func NewValues(s schema.Schema) *Values {
	return &Values{data: make(map[string]any), schema: s}
}

// Get returns the value stored under key.
func (v *Values) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[key]
	return val, ok
}

// Set stores a value. Declared keys must match their schema type.
func (v *Values) Set(key string, value any) error {
	if err := schema.ValidateValue(v.schema, key, value); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
	return nil
}

// Delete removes a key.
func (v *Values) Delete(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.data, key)
}

// Keys lists the stored keys in sorted order.
func (v *Values) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.data))
	for k := range v.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the store.
func (v *Values) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]any, len(v.data))
	for k, val := range v.data {
		out[k] = val
	}
	return out
}

// Replace swaps the whole content after validating every declared key.
func (v *Values) Replace(data map[string]any) error {
	if err := v.check(data); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = make(map[string]any, len(data))
	for k, val := range data {
		v.data[k] = val
	}
	return nil
}

func (v *Values) check(data map[string]any) error {
	for k, val := range data {
		if err := schema.ValidateValue(v.schema, k, val); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every declared key is present and well typed.
func (v *Values) Validate() error {
	return schema.Validate(v.schema, v.Snapshot())
}

// Decode copies the value under key into out, which must be a pointer.
// Numbers and maps are converted loosely, so values loaded from documents
// decode into structs and narrower numeric types.
func (v *Values) Decode(key string, out any) error {
	raw, ok := v.Get(key)
	if !ok {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode value %q: %w", key, err)
	}
	return nil
}

// ValueOf reads a typed value. A missing key yields the zero value.
func ValueOf[T any](v *Values, key string) (T, error) {
	var out T
	if raw, ok := v.Get(key); ok {
		if typed, ok := raw.(T); ok {
			return typed, nil
		}
	}
	err := v.Decode(key, &out)
	return out, err
}
