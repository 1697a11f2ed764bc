package metadata

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/roach88/metastore/internal/ident"
	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// HasOne manages the single attribute document of an owner.
type HasOne struct {
	st     store.Store
	owner  store.OwnerRef
	ids    ident.Generator
	loc    *time.Location
	logger *slog.Logger
}

// NewHasOne returns the single-document engine for owner.
func NewHasOne(st store.Store, owner store.Owner, opts ...Option) *HasOne {
	cfg := newConfig(opts)
	return &HasOne{
		st:     st,
		owner:  store.RefOf(owner),
		ids:    cfg.ids,
		loc:    cfg.loc,
		logger: cfg.logger.With("owner", store.RefOf(owner).String()),
	}
}

// current returns the owner's document. Should a store hold several, the
// oldest is used.
func (h *HasOne) current(ctx context.Context) (store.Document, bool, error) {
	docs, err := h.st.FindAllByOwner(ctx, h.owner)
	if err != nil {
		return store.Document{}, false, fmt.Errorf("load document: %w", err)
	}
	if len(docs) == 0 {
		return store.Document{}, false, nil
	}
	return docs[0], true, nil
}

// Create stores payload as the owner's document. It returns nil without
// writing when the owner already has one.
func (h *HasOne) Create(ctx context.Context, payload value.Object) (*store.Document, error) {
	exists, err := h.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		h.logger.DebugContext(ctx, "create skipped, document exists")
		return nil, nil
	}

	if payload == nil {
		payload = value.Object{}
	}
	doc, err := h.st.Create(ctx, store.Document{
		ID:      h.ids.Generate(),
		Owner:   h.owner,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	doc = normalize(doc, h.loc)
	return &doc, nil
}

// AddKeys merges keys into the current payload ({} when absent) and syncs
// the result.
func (h *HasOne) AddKeys(ctx context.Context, keys value.Object) (bool, error) {
	if value.IsEmpty(keys) {
		return false, nil
	}
	current, err := h.Get(ctx)
	if err != nil {
		return false, err
	}
	return h.Sync(ctx, current.Merge(keys))
}

// AddKey sets a single key.
func (h *HasOne) AddKey(ctx context.Context, key string, v value.Value) (bool, error) {
	if value.IsBlank(key) {
		return false, nil
	}
	return h.AddKeys(ctx, value.Object{{Key: key, Value: v}})
}

// UpdateKeys is AddKeys.
func (h *HasOne) UpdateKeys(ctx context.Context, keys value.Object) (bool, error) {
	return h.AddKeys(ctx, keys)
}

// UpdateKey is AddKey.
func (h *HasOne) UpdateKey(ctx context.Context, key string, v value.Value) (bool, error) {
	return h.AddKey(ctx, key, v)
}

// Sync replaces the payload when a document exists and creates one
// otherwise.
func (h *HasOne) Sync(ctx context.Context, payload value.Object) (bool, error) {
	exists, err := h.Exists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return h.Update(ctx, payload)
	}
	doc, err := h.Create(ctx, payload)
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}

// Update replaces the payload wholesale. It never creates a document.
func (h *HasOne) Update(ctx context.Context, payload value.Object) (bool, error) {
	if payload == nil {
		payload = value.Object{}
	}
	return h.write(ctx, payload)
}

func (h *HasOne) write(ctx context.Context, payload value.Object) (bool, error) {
	doc, ok, err := h.current(ctx)
	if err != nil || !ok {
		return false, err
	}
	n, err := h.st.UpdateByID(ctx, h.owner, doc.ID, payload)
	if err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	return n > 0, nil
}

// Delete removes the document.
func (h *HasOne) Delete(ctx context.Context) (bool, error) {
	doc, ok, err := h.current(ctx)
	if err != nil || !ok {
		return false, err
	}
	n, err := h.st.DeleteByID(ctx, h.owner, doc.ID)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	return n > 0, nil
}

// Clear sets the payload to null. The document survives.
func (h *HasOne) Clear(ctx context.Context) (bool, error) {
	return h.write(ctx, nil)
}

// ClearKeys removes keys from the payload. Dotted keys remove nested leaves.
// It fails when the owner has no document.
func (h *HasOne) ClearKeys(ctx context.Context, keys ...string) (bool, error) {
	if value.KeysEmpty(keys) {
		return false, nil
	}
	doc, ok, err := h.current(ctx)
	if err != nil || !ok {
		return false, err
	}
	if doc.Payload == nil {
		doc.Payload = value.Object{}
	}
	return h.Sync(ctx, doc.Payload.Except(keys...))
}

// ClearKey removes a single key.
func (h *HasOne) ClearKey(ctx context.Context, key string) (bool, error) {
	return h.ClearKeys(ctx, key)
}

// Exists reports whether the owner has a document, cleared or not.
func (h *HasOne) Exists(ctx context.Context) (bool, error) {
	ok, err := h.st.Exists(ctx, h.owner)
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return ok, nil
}

// HasAllKeys reports whether every key exists. Dotted keys address nested
// values.
func (h *HasOne) HasAllKeys(ctx context.Context, keys ...string) (bool, error) {
	if value.KeysEmpty(keys) {
		return false, nil
	}
	payload, err := h.Get(ctx)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if !payload.HasPath(k) {
			return false, nil
		}
	}
	return true, nil
}

// HasKey reports whether key exists.
func (h *HasOne) HasKey(ctx context.Context, key string) (bool, error) {
	return h.HasAllKeys(ctx, key)
}

// HasAnyKeys reports whether at least one key exists.
func (h *HasOne) HasAnyKeys(ctx context.Context, keys ...string) (bool, error) {
	if value.KeysEmpty(keys) {
		return false, nil
	}
	payload, err := h.Get(ctx)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if !value.IsBlank(k) && payload.HasPath(k) {
			return true, nil
		}
	}
	return false, nil
}

// HasFilled reports whether a document exists with a non-empty payload.
func (h *HasOne) HasFilled(ctx context.Context) (bool, error) {
	payload, err := h.Get(ctx)
	if err != nil {
		return false, err
	}
	return !value.IsEmpty(payload), nil
}

// Get returns the payload, or only the listed top-level keys. A blank
// single key counts as no keys. An absent or cleared document yields {}.
func (h *HasOne) Get(ctx context.Context, keys ...string) (value.Object, error) {
	doc, ok, err := h.current(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || doc.Payload == nil {
		return value.Object{}, nil
	}
	if value.KeysEmpty(keys) {
		return doc.Payload, nil
	}
	return doc.Payload.Only(keys...), nil
}

// GetKey returns the value under key, or value.Null{} when absent.
func (h *HasOne) GetKey(ctx context.Context, key string) (value.Value, error) {
	if value.IsBlank(key) {
		return value.Null{}, nil
	}
	payload, err := h.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if v, ok := payload.Get(key); ok {
		return v, nil
	}
	return value.Null{}, nil
}

// Collection iterates over Get(keys...) in stored order.
func (h *HasOne) Collection(ctx context.Context, keys ...string) (iter.Seq2[string, value.Value], error) {
	payload, err := h.Get(ctx, keys...)
	if err != nil {
		return nil, err
	}
	return payload.All(), nil
}
