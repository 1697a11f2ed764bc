package metadata

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/metastore/internal/document"
	"github.com/roach88/metastore/internal/ident"
	"github.com/roach88/metastore/internal/search"
	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// HasMany manages the independently addressable attribute documents of an
// owner.
type HasMany struct {
	st     store.Store
	owner  store.OwnerRef
	ids    ident.Generator
	loc    *time.Location
	logger *slog.Logger

	mu              sync.RWMutex
	identityEnabled bool
	identityKey     string
}

// NewHasMany returns the multi-document engine for owner.
func NewHasMany(st store.Store, owner store.Owner, opts ...Option) *HasMany {
	cfg := newConfig(opts)
	ref := store.RefOf(owner)
	return &HasMany{
		st:              st,
		owner:           ref,
		ids:             cfg.ids,
		loc:             cfg.loc,
		logger:          cfg.logger.With("owner", ref.String()),
		identityEnabled: cfg.identityEnabled,
		identityKey:     cfg.identityKey,
	}
}

// SetIdentityKeyEnabled turns identity key injection on reads on or off.
func (m *HasMany) SetIdentityKeyEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identityEnabled = enabled
}

// IdentityKeyEnabled reports whether reads inject the identity key.
func (m *HasMany) IdentityKeyEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identityEnabled
}

// SetIdentityKeyName changes the identity key. A blank name restores
// DefaultIdentityKey.
func (m *HasMany) SetIdentityKeyName(name string) {
	if value.IsBlank(name) {
		name = DefaultIdentityKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identityKey = name
}

// IdentityKeyName returns the identity key.
func (m *HasMany) IdentityKeyName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identityKey
}

func (m *HasMany) identity() (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identityEnabled, m.identityKey
}

// view is the read form of a document: {} for a cleared payload, with the
// identity key injected when enabled.
func (m *HasMany) view(doc store.Document) value.Object {
	enabled, key := m.identity()
	if enabled {
		return document.InjectIdentityKey(doc.Payload, doc.ID, key)
	}
	if doc.Payload == nil {
		return value.Object{}
	}
	return doc.Payload
}

// Create stores payload as a new document.
func (m *HasMany) Create(ctx context.Context, payload value.Object) (store.Document, error) {
	if payload == nil {
		payload = value.Object{}
	}
	doc, err := m.st.Create(ctx, store.Document{
		ID:      m.ids.Generate(),
		Owner:   m.owner,
		Payload: payload,
	})
	if err != nil {
		return store.Document{}, fmt.Errorf("create document: %w", err)
	}
	return normalize(doc, m.loc), nil
}

// CreateMany creates one document per element of a nested input. The whole
// batch is rejected, and nil returned, when the input is empty, not nested,
// or holds an element that is not a non-empty object.
func (m *HasMany) CreateMany(ctx context.Context, payloads value.Value) ([]store.Document, error) {
	batch, ok := batchPayloads(payloads)
	if !ok {
		m.logger.DebugContext(ctx, "create many rejected", "kind", value.Kind(payloads))
		return nil, nil
	}
	return m.createBatch(ctx, batch)
}

func batchPayloads(payloads value.Value) ([]value.Object, bool) {
	if value.IsEmpty(payloads) || document.DetectShape(payloads) != document.Nested {
		return nil, false
	}
	elems := document.Elements(payloads)
	batch := make([]value.Object, 0, len(elems))
	for _, elem := range elems {
		obj, ok := elem.(value.Object)
		if !ok || value.IsEmpty(obj) {
			return nil, false
		}
		batch = append(batch, obj)
	}
	return batch, true
}

func (m *HasMany) createBatch(ctx context.Context, batch []value.Object) ([]store.Document, error) {
	docs := make([]store.Document, len(batch))
	for i, payload := range batch {
		docs[i] = store.Document{
			ID:      m.ids.Generate(),
			Owner:   m.owner,
			Payload: payload,
		}
	}

	if bc, ok := m.st.(store.BatchCreator); ok {
		created, err := bc.CreateMany(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("create documents: %w", err)
		}
		docs = created
	} else {
		for i, doc := range docs {
			created, err := m.st.Create(ctx, doc)
			if err != nil {
				return nil, fmt.Errorf("create document %d of %d: %w", i+1, len(docs), err)
			}
			docs[i] = created
		}
	}

	for i := range docs {
		docs[i] = normalize(docs[i], m.loc)
	}
	return docs, nil
}

// AddKeysByID merges keys into the document's payload.
func (m *HasMany) AddKeysByID(ctx context.Context, id string, keys value.Object) (bool, error) {
	if value.IsEmpty(keys) {
		return false, nil
	}
	current, err := m.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return m.UpdateByID(ctx, id, current.Merge(keys))
}

// AddKeyByID sets a single key of the document.
func (m *HasMany) AddKeyByID(ctx context.Context, id, key string, v value.Value) (bool, error) {
	if value.IsBlank(key) {
		return false, nil
	}
	return m.AddKeysByID(ctx, id, value.Object{{Key: key, Value: v}})
}

// UpdateKeysByID is AddKeysByID.
func (m *HasMany) UpdateKeysByID(ctx context.Context, id string, keys value.Object) (bool, error) {
	return m.AddKeysByID(ctx, id, keys)
}

// UpdateKeyByID is AddKeyByID.
func (m *HasMany) UpdateKeyByID(ctx context.Context, id, key string, v value.Value) (bool, error) {
	return m.AddKeyByID(ctx, id, key, v)
}

// UpdateByID replaces the document's payload without its identity key.
func (m *HasMany) UpdateByID(ctx context.Context, id string, payload value.Object) (bool, error) {
	if payload == nil {
		payload = value.Object{}
	}
	return m.write(ctx, id, document.StripObject(payload, m.IdentityKeyName()))
}

func (m *HasMany) write(ctx context.Context, id string, payload value.Object) (bool, error) {
	n, err := m.st.UpdateByID(ctx, m.owner, id, payload)
	if err != nil {
		return false, fmt.Errorf("update document %s: %w", id, err)
	}
	return n > 0, nil
}

// Sync replaces all documents of the owner.
//
// A blank input deletes every document. A nested input creates one document
// per element without the identity key, then deletes the documents that
// existed before. It is validated first, so an invalid batch changes nothing,
// and a failed create leaves the previous documents in place. A non-empty
// flat input fails without mutation.
func (m *HasMany) Sync(ctx context.Context, payloads value.Value) (bool, error) {
	if value.IsEmpty(payloads) {
		if _, err := m.deleteAll(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	stripped := document.StripIdentityKey(payloads, m.IdentityKeyName())
	batch, ok := batchPayloads(stripped)
	if !ok {
		m.logger.DebugContext(ctx, "sync rejected", "shape", document.DetectShape(payloads).String())
		return false, nil
	}

	previous, err := m.st.FindAllByOwner(ctx, m.owner)
	if err != nil {
		return false, fmt.Errorf("load documents: %w", err)
	}
	docs, err := m.createBatch(ctx, batch)
	if err != nil {
		return false, err
	}
	for _, doc := range previous {
		if _, err := m.st.DeleteByID(ctx, m.owner, doc.ID); err != nil {
			return false, fmt.Errorf("delete document %s: %w", doc.ID, err)
		}
	}
	return docs != nil, nil
}

// DeleteByID removes a document.
func (m *HasMany) DeleteByID(ctx context.Context, id string) (bool, error) {
	n, err := m.st.DeleteByID(ctx, m.owner, id)
	if err != nil {
		return false, fmt.Errorf("delete document %s: %w", id, err)
	}
	return n > 0, nil
}

// DeleteAll removes every document of the owner and reports whether any
// existed.
func (m *HasMany) DeleteAll(ctx context.Context) (bool, error) {
	n, err := m.deleteAll(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *HasMany) deleteAll(ctx context.Context) (int64, error) {
	n, err := m.st.DeleteAllByOwner(ctx, m.owner)
	if err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	return n, nil
}

// ClearByID sets the document's payload to null.
func (m *HasMany) ClearByID(ctx context.Context, id string) (bool, error) {
	return m.write(ctx, id, nil)
}

// ClearKeysByID removes keys from the document's payload. Dotted keys remove
// nested leaves.
func (m *HasMany) ClearKeysByID(ctx context.Context, id string, keys ...string) (bool, error) {
	if value.KeysEmpty(keys) {
		return false, nil
	}
	doc, ok, err := m.find(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return m.UpdateByID(ctx, id, m.view(doc).Except(keys...))
}

// ClearKeyByID removes a single key from the document's payload.
func (m *HasMany) ClearKeyByID(ctx context.Context, id, key string) (bool, error) {
	return m.ClearKeysByID(ctx, id, key)
}

func (m *HasMany) find(ctx context.Context, id string) (store.Document, bool, error) {
	doc, err := m.st.Find(ctx, m.owner, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Document{}, false, nil
	}
	if err != nil {
		return store.Document{}, false, fmt.Errorf("find document %s: %w", id, err)
	}
	return doc, true, nil
}

// Document returns the full record with timestamps in the engine's zone, or
// store.ErrNotFound.
func (m *HasMany) Document(ctx context.Context, id string) (store.Document, error) {
	doc, ok, err := m.find(ctx, id)
	if err != nil {
		return store.Document{}, err
	}
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return normalize(doc, m.loc), nil
}

// GetByID returns the document's payload, or only the listed top-level
// keys. A blank single key counts as no keys. A missing document yields {}.
func (m *HasMany) GetByID(ctx context.Context, id string, keys ...string) (value.Object, error) {
	doc, ok, err := m.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return value.Object{}, nil
	}
	payload := m.view(doc)
	if value.KeysEmpty(keys) {
		return payload, nil
	}
	return payload.Only(keys...), nil
}

// GetKeyByID returns the value under key, or value.Null{} when absent.
func (m *HasMany) GetKeyByID(ctx context.Context, id, key string) (value.Value, error) {
	if value.IsBlank(key) {
		return value.Null{}, nil
	}
	payload, err := m.GetByID(ctx, id, key)
	if err != nil {
		return nil, err
	}
	if v, ok := payload.Get(key); ok {
		return v, nil
	}
	return value.Null{}, nil
}

// SearchCollection iterates over the payloads of documents with a top-level
// value matching term.
func (m *HasMany) SearchCollection(ctx context.Context, term value.Value) (iter.Seq[value.Object], error) {
	docs, err := search.Documents(ctx, m.st, m.owner, term, m.logger)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return m.views(docs), nil
}

// Search is SearchCollection collected into a slice.
func (m *HasMany) Search(ctx context.Context, term value.Value) ([]value.Object, error) {
	seq, err := m.SearchCollection(ctx, term)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// Collection iterates over every payload of the owner in creation order.
func (m *HasMany) Collection(ctx context.Context) (iter.Seq[value.Object], error) {
	docs, err := m.st.FindAllByOwner(ctx, m.owner)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	return m.views(docs), nil
}

// All is Collection collected into a slice. It never returns nil.
func (m *HasMany) All(ctx context.Context) ([]value.Object, error) {
	seq, err := m.Collection(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.Collect(seq)
	if out == nil {
		out = []value.Object{}
	}
	return out, nil
}

func (m *HasMany) views(docs []store.Document) iter.Seq[value.Object] {
	return func(yield func(value.Object) bool) {
		for _, doc := range docs {
			if !yield(m.view(doc)) {
				return
			}
		}
	}
}

// Exists reports whether the owner has any document.
func (m *HasMany) Exists(ctx context.Context) (bool, error) {
	ok, err := m.st.Exists(ctx, m.owner)
	if err != nil {
		return false, fmt.Errorf("check documents: %w", err)
	}
	return ok, nil
}

// ExistsByID reports whether the document exists.
func (m *HasMany) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok, err := m.find(ctx, id)
	return ok, err
}

// HasFilledByID reports whether the document exists with a non-empty stored
// payload. The injected identity key does not count.
func (m *HasMany) HasFilledByID(ctx context.Context, id string) (bool, error) {
	doc, ok, err := m.find(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return !value.IsEmpty(doc.Payload), nil
}
