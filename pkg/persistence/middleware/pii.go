package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/ports"
)

// Mask replaces masked values in stored documents.
const Mask = "***"

type piiMiddleware struct {
	next     ports.GraphStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks shared values whose key
// matches one of the patterns, nested maps included. The graph being saved
// is left untouched.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.GraphStore) ports.GraphStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, name string, doc *domain.GraphDoc) error {
	masked := *doc
	masked.Values = m.mask(doc.Values)
	return m.next.Save(ctx, name, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, name string) (*domain.GraphDoc, error) {
	return m.next.Load(ctx, name)
}

func (m *piiMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// mask returns a copy of values with sensitive keys replaced.
func (m *piiMiddleware) mask(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch {
		case m.sensitive(k):
			out[k] = Mask
		case isMap(v):
			out[k] = m.mask(toMap(v))
		default:
			out[k] = v
		}
	}
	return out
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func isMap(v any) bool {
	switch v.(type) {
	case map[string]any, map[any]any:
		return true
	}
	return false
}

// toMap normalizes the map shapes decoders produce.
func toMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out
	}
	return nil
}
