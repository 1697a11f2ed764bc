package store

import (
	"context"
	"time"

	"github.com/roach88/metastore/internal/value"
)

// Owner is any entity that can hold attribute documents.
type Owner interface {
	OwnerType() string
	OwnerID() string
}

// OwnerRef is the polymorphic owner reference stored with every document.
type OwnerRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// OwnerType implements Owner.
func (r OwnerRef) OwnerType() string { return r.Type }

// OwnerID implements Owner.
func (r OwnerRef) OwnerID() string { return r.ID }

// String returns "type#id".
func (r OwnerRef) String() string {
	return r.Type + "#" + r.ID
}

// RefOf returns the reference of any owner.
func RefOf(o Owner) OwnerRef {
	if ref, ok := o.(OwnerRef); ok {
		return ref
	}
	return OwnerRef{Type: o.OwnerType(), ID: o.OwnerID()}
}

// Document is one persisted attribute record.
//
// A nil Payload is the cleared state; an empty non-nil Payload is {}.
type Document struct {
	ID        string       `json:"id"`
	Owner     OwnerRef     `json:"owner"`
	Payload   value.Object `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Store is the document storage collaborator.
//
// Mutations report the number of affected documents; zero means no document
// matched. FindAllByOwner returns documents in creation order and never
// returns nil.
type Store interface {
	// Create persists doc and returns it with its timestamps set.
	Create(ctx context.Context, doc Document) (Document, error)

	// Find returns the owner's document with the given id, or ErrNotFound.
	Find(ctx context.Context, owner OwnerRef, id string) (Document, error)

	FindAllByOwner(ctx context.Context, owner OwnerRef) ([]Document, error)
	Exists(ctx context.Context, owner OwnerRef) (bool, error)

	// UpdateByID replaces the payload of a document wholesale. A nil
	// payload clears it.
	UpdateByID(ctx context.Context, owner OwnerRef, id string, payload value.Object) (int64, error)

	DeleteByID(ctx context.Context, owner OwnerRef, id string) (int64, error)
	DeleteAllByOwner(ctx context.Context, owner OwnerRef) (int64, error)

	// QueryContains returns the owner's documents with a top-level value
	// matching term: substring for string values and string terms, strict
	// equality otherwise. Returns ErrCapabilityUnsupported when the backend
	// cannot evaluate it natively.
	QueryContains(ctx context.Context, owner OwnerRef, term value.Value) ([]Document, error)
}

// BatchCreator is implemented by stores that can create several documents
// atomically.
type BatchCreator interface {
	CreateMany(ctx context.Context, docs []Document) ([]Document, error)
}
