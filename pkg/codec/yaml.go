// Package codec turns port literals into typed values and back.
package codec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/flowgraph/pkg/schema"
	"gopkg.in/yaml.v3"
)

// YAML is the default literal codec. Literals are YAML scalars or flow
// sequences, so "3", "hello", "true" and "[1, 2]" all parse as expected.
type YAML struct{}

// Parse decodes text into a value of type t. Empty text yields the zero value.
func (YAML) Parse(text string, t schema.Type) (any, error) {
	if t == nil || schema.IsControl(t) && t.GoType().Kind() != reflect.Slice {
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		return schema.Zero(t), nil
	}

	if schema.IsAny(t) {
		var v any
		if err := yaml.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("parse %q as any: %w", text, err)
		}
		return v, nil
	}

	ptr := reflect.New(t.GoType())
	if err := yaml.Unmarshal([]byte(text), ptr.Interface()); err != nil {
		// Bare strings that YAML reads as other scalars (e.g. "yes", "1.0").
		if t.GoType().Kind() == reflect.String {
			return reflect.ValueOf(text).Convert(t.GoType()).Interface(), nil
		}
		return nil, fmt.Errorf("parse %q as %s: %w", text, t.Name(), err)
	}
	return ptr.Elem().Interface(), nil
}

// Format encodes value as literal text. A nil value yields an empty literal.
func (YAML) Format(value any, t schema.Type) (string, error) {
	if value == nil {
		return "", nil
	}
	if t != nil && schema.IsControl(t) && t.GoType().Kind() != reflect.Slice {
		return "", nil
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("format %T: %w", value, err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}
