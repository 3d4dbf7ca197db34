package ports

import "github.com/aretw0/flowgraph/pkg/schema"

// Codec converts port literals to typed values and back.
type Codec interface {
	Parse(text string, t schema.Type) (any, error)
	Format(value any, t schema.Type) (string, error)
}
