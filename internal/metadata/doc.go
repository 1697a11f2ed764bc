// Package metadata implements the attribute engines that attach
// schema-free key/value documents to owner entities.
//
// Two cardinalities are provided:
//   - HasOne: at most one document per owner, addressed through the owner
//   - HasMany: any number of documents per owner, each addressed by id
//
// Both engines sit on a store.Store and are stateless apart from HasMany's
// identity key configuration. Invalid input (an empty key list, a malformed
// batch) and missing documents are reported as a false or empty result, never
// as an error. Errors are reserved for store failures.
//
// # Identity Key
//
// HasMany exposes each document's id inside its payload under a configurable
// key (default "id"). The key is stripped before every update and sync write
// and injected again on every read. A payload that stores the key itself
// keeps its stored value on read.
//
// # Cleared and Empty Payloads
//
// Clear sets a payload to null while the document survives. At rest a cleared
// payload and an empty {} payload stay distinct; reads present both as {}.
//
// # Concurrency
//
// Read-modify-write operations (AddKeys, UpdateKeys, ClearKeys, HasMany.Sync)
// are not isolated: concurrent writers race and the last write wins.
package metadata

import (
	"context"
	"iter"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// SingleAttributeStore is the capability set of an owner with one attribute
// document.
type SingleAttributeStore interface {
	Create(ctx context.Context, payload value.Object) (*store.Document, error)
	AddKeys(ctx context.Context, keys value.Object) (bool, error)
	AddKey(ctx context.Context, key string, v value.Value) (bool, error)
	Sync(ctx context.Context, payload value.Object) (bool, error)
	Update(ctx context.Context, payload value.Object) (bool, error)
	UpdateKeys(ctx context.Context, keys value.Object) (bool, error)
	UpdateKey(ctx context.Context, key string, v value.Value) (bool, error)
	Delete(ctx context.Context) (bool, error)
	Clear(ctx context.Context) (bool, error)
	ClearKeys(ctx context.Context, keys ...string) (bool, error)
	ClearKey(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context) (bool, error)
	HasAllKeys(ctx context.Context, keys ...string) (bool, error)
	HasKey(ctx context.Context, key string) (bool, error)
	HasAnyKeys(ctx context.Context, keys ...string) (bool, error)
	HasFilled(ctx context.Context) (bool, error)
	Get(ctx context.Context, keys ...string) (value.Object, error)
	GetKey(ctx context.Context, key string) (value.Value, error)
	Collection(ctx context.Context, keys ...string) (iter.Seq2[string, value.Value], error)
}

// MultiAttributeStore is the capability set of an owner with many attribute
// documents.
type MultiAttributeStore interface {
	Create(ctx context.Context, payload value.Object) (store.Document, error)
	CreateMany(ctx context.Context, payloads value.Value) ([]store.Document, error)
	AddKeysByID(ctx context.Context, id string, keys value.Object) (bool, error)
	AddKeyByID(ctx context.Context, id, key string, v value.Value) (bool, error)
	UpdateByID(ctx context.Context, id string, payload value.Object) (bool, error)
	UpdateKeysByID(ctx context.Context, id string, keys value.Object) (bool, error)
	UpdateKeyByID(ctx context.Context, id, key string, v value.Value) (bool, error)
	Sync(ctx context.Context, payloads value.Value) (bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) (bool, error)
	ClearByID(ctx context.Context, id string) (bool, error)
	ClearKeysByID(ctx context.Context, id string, keys ...string) (bool, error)
	ClearKeyByID(ctx context.Context, id, key string) (bool, error)
	GetByID(ctx context.Context, id string, keys ...string) (value.Object, error)
	GetKeyByID(ctx context.Context, id, key string) (value.Value, error)
	SearchCollection(ctx context.Context, term value.Value) (iter.Seq[value.Object], error)
	Search(ctx context.Context, term value.Value) ([]value.Object, error)
	Collection(ctx context.Context) (iter.Seq[value.Object], error)
	All(ctx context.Context) ([]value.Object, error)
	Exists(ctx context.Context) (bool, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	HasFilledByID(ctx context.Context, id string) (bool, error)
	Document(ctx context.Context, id string) (store.Document, error)
	SetIdentityKeyEnabled(enabled bool)
	IdentityKeyEnabled() bool
	SetIdentityKeyName(name string)
	IdentityKeyName() string
}

var (
	_ SingleAttributeStore = (*HasOne)(nil)
	_ MultiAttributeStore  = (*HasMany)(nil)
)
