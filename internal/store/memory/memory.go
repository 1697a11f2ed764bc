// Package memory is a process-local store.Store.
//
// Documents live in maps guarded by a read/write mutex and are copied on the
// way in and out, so callers never share payload slices with the store. The
// backend has no native containment query.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/zeebo/errs"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// Error is the error class for memory store failures.
var Error = errs.Class("memory store")

// Store keeps documents in memory. The zero value is not usable; call New.
type Store struct {
	mu sync.RWMutex
	// docs by id; order holds each owner's ids in creation order
	docs  map[string]store.Document
	order map[store.OwnerRef][]string
	now   func() time.Time
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.BatchCreator = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:  make(map[string]store.Document),
		order: make(map[store.OwnerRef][]string),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, doc store.Document) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkNew(doc); err != nil {
		return store.Document{}, err
	}
	return s.insert(doc), nil
}

// CreateMany implements store.BatchCreator. Either every document is
// created or none is.
func (s *Store) CreateMany(ctx context.Context, docs []store.Document) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if err := s.checkNew(doc); err != nil {
			return nil, err
		}
		if seen[doc.ID] {
			return nil, Error.New("duplicate document id %q in batch", doc.ID)
		}
		seen[doc.ID] = true
	}

	created := make([]store.Document, 0, len(docs))
	for _, doc := range docs {
		created = append(created, s.insert(doc))
	}
	return created, nil
}

func (s *Store) checkNew(doc store.Document) error {
	if doc.ID == "" {
		return Error.New("document id is required")
	}
	if _, ok := s.docs[doc.ID]; ok {
		return Error.New("document %q already exists", doc.ID)
	}
	return nil
}

// insert stores doc; callers hold the write lock.
func (s *Store) insert(doc store.Document) store.Document {
	now := s.now().UTC()
	doc.Payload = clonePayload(doc.Payload)
	doc.CreatedAt = now
	doc.UpdatedAt = now

	s.docs[doc.ID] = doc
	s.order[doc.Owner] = append(s.order[doc.Owner], doc.ID)
	return copyDocument(doc)
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, owner store.OwnerRef, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok || doc.Owner != owner {
		return store.Document{}, store.ErrNotFound
	}
	return copyDocument(doc), nil
}

// FindAllByOwner implements store.Store.
func (s *Store) FindAllByOwner(ctx context.Context, owner store.OwnerRef) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[owner]
	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, copyDocument(s.docs[id]))
	}
	return docs, nil
}

// Exists implements store.Store.
func (s *Store) Exists(ctx context.Context, owner store.OwnerRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order[owner]) > 0, nil
}

// UpdateByID implements store.Store.
func (s *Store) UpdateByID(ctx context.Context, owner store.OwnerRef, id string, payload value.Object) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok || doc.Owner != owner {
		return 0, nil
	}
	doc.Payload = clonePayload(payload)
	doc.UpdatedAt = s.now().UTC()
	s.docs[id] = doc
	return 1, nil
}

// DeleteByID implements store.Store.
func (s *Store) DeleteByID(ctx context.Context, owner store.OwnerRef, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok || doc.Owner != owner {
		return 0, nil
	}
	delete(s.docs, id)

	ids := s.order[owner]
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(s.order, owner)
	} else {
		s.order[owner] = ids
	}
	return 1, nil
}

// DeleteAllByOwner implements store.Store.
func (s *Store) DeleteAllByOwner(ctx context.Context, owner store.OwnerRef) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.order[owner]
	for _, id := range ids {
		delete(s.docs, id)
	}
	delete(s.order, owner)
	return int64(len(ids)), nil
}

// QueryContains implements store.Store. The memory backend has no query
// engine and always reports store.ErrCapabilityUnsupported.
func (s *Store) QueryContains(ctx context.Context, owner store.OwnerRef, term value.Value) ([]store.Document, error) {
	return nil, store.ErrCapabilityUnsupported
}

// Len returns the total number of documents across all owners.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func copyDocument(doc store.Document) store.Document {
	doc.Payload = clonePayload(doc.Payload)
	return doc
}

// clonePayload deep copies payload, keeping nil as nil.
func clonePayload(payload value.Object) value.Object {
	if payload == nil {
		return nil
	}
	return cloneValue(payload).(value.Object)
}

func cloneValue(v value.Value) value.Value {
	switch val := v.(type) {
	case value.Object:
		if val == nil {
			return val
		}
		out := make(value.Object, len(val))
		for i, p := range val {
			out[i] = value.Pair{Key: p.Key, Value: cloneValue(p.Value)}
		}
		return out
	case value.Array:
		if val == nil {
			return val
		}
		out := make(value.Array, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}
