package registrations

import "context"

// Repo defines persistence operations for applications and their documents.
type Repo interface {
	// CreateWithDocuments stores the application and all of its documents as
	// one unit. A taken reference yields ErrDuplicateReference.
	CreateWithDocuments(ctx context.Context, app Application, docs []Document) error
	GetByID(ctx context.Context, id string) (Application, error)
	GetByRef(ctx context.Context, ref string) (Application, error)
	ListDocuments(ctx context.Context, applicationID string) ([]Document, error)
}
