package registrations

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	apps map[string]Application // id -> application
	refs map[string]string      // ref -> id
	docs map[string][]Document  // application id -> documents
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		apps: make(map[string]Application),
		refs: make(map[string]string),
		docs: make(map[string][]Document),
	}
}

// CreateWithDocuments stores the application and documents in one critical section.
func (r *MemoryRepo) CreateWithDocuments(ctx context.Context, app Application, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.refs[app.Ref]; taken {
		return ErrDuplicateReference
	}
	r.apps[app.ID] = app
	r.refs[app.Ref] = app.ID
	stored := make([]Document, len(docs))
	copy(stored, docs)
	r.docs[app.ID] = stored
	return nil
}

// GetByID returns an application by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

// GetByRef returns an application by its reference.
func (r *MemoryRepo) GetByRef(ctx context.Context, ref string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.refs[ref]
	if !ok {
		return Application{}, ErrNotFound
	}
	return r.apps[id], nil
}

// ListDocuments returns the documents of an application in insertion order.
func (r *MemoryRepo) ListDocuments(ctx context.Context, applicationID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.docs[applicationID]
	out := make([]Document, len(docs))
	copy(out, docs)
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
