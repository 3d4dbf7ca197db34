package ports

import (
	"context"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// GraphStore persists graph documents by name.
type GraphStore interface {
	// Save persists the document under name, replacing any previous version.
	Save(ctx context.Context, name string, doc *domain.GraphDoc) error

	// Load retrieves a document.
	// Returns domain.ErrGraphNotFound if the name does not exist.
	Load(ctx context.Context, name string) (*domain.GraphDoc, error)

	// Delete removes a document. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored documents.
	List(ctx context.Context) ([]string, error)
}
