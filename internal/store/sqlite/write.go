package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

const insertDocument = `
	INSERT INTO attribute_documents
	(id, owner_type, owner_id, payload, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
`

// execer is the subset of *sql.DB and *sql.Tx used by insert.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create implements store.Store. A duplicate id violates the UNIQUE
// constraint and is returned as an error.
func (s *Store) Create(ctx context.Context, doc store.Document) (store.Document, error) {
	created, err := s.insert(ctx, s.db, doc)
	if err != nil {
		return store.Document{}, Error.Wrap(err)
	}
	return created, nil
}

// CreateMany implements store.BatchCreator. All documents are inserted in
// one transaction.
func (s *Store) CreateMany(ctx context.Context, docs []store.Document) ([]store.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	created := make([]store.Document, 0, len(docs))
	for _, doc := range docs {
		c, err := s.insert(ctx, tx, doc)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		created = append(created, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, Error.Wrap(fmt.Errorf("commit transaction: %w", err))
	}
	return created, nil
}

func (s *Store) insert(ctx context.Context, db execer, doc store.Document) (store.Document, error) {
	if doc.ID == "" {
		return store.Document{}, fmt.Errorf("create document: id is required")
	}

	payload, err := marshalPayload(doc.Payload)
	if err != nil {
		return store.Document{}, fmt.Errorf("create document: %w", err)
	}

	now := s.now().UTC()
	ts := formatTime(now)
	_, err = db.ExecContext(ctx, insertDocument,
		doc.ID,
		doc.Owner.Type,
		doc.Owner.ID,
		payload,
		ts,
		ts,
	)
	if err != nil {
		return store.Document{}, fmt.Errorf("create document %s: %w", doc.ID, err)
	}

	doc.CreatedAt = now
	doc.UpdatedAt = now
	return doc, nil
}

// UpdateByID implements store.Store.
func (s *Store) UpdateByID(ctx context.Context, owner store.OwnerRef, id string, payload value.Object) (int64, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return 0, Error.Wrap(fmt.Errorf("update document: %w", err))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE attribute_documents
		SET payload = ?, updated_at = ?
		WHERE id = ? AND owner_type = ? AND owner_id = ?
	`, data, formatTime(s.now()), id, owner.Type, owner.ID)
	if err != nil {
		return 0, Error.Wrap(fmt.Errorf("update document %s: %w", id, err))
	}
	return rowsAffected(res)
}

// DeleteByID implements store.Store.
func (s *Store) DeleteByID(ctx context.Context, owner store.OwnerRef, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM attribute_documents
		WHERE id = ? AND owner_type = ? AND owner_id = ?
	`, id, owner.Type, owner.ID)
	if err != nil {
		return 0, Error.Wrap(fmt.Errorf("delete document %s: %w", id, err))
	}
	return rowsAffected(res)
}

// DeleteAllByOwner implements store.Store.
func (s *Store) DeleteAllByOwner(ctx context.Context, owner store.OwnerRef) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM attribute_documents
		WHERE owner_type = ? AND owner_id = ?
	`, owner.Type, owner.ID)
	if err != nil {
		return 0, Error.Wrap(fmt.Errorf("delete documents of %s: %w", owner, err))
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, Error.Wrap(fmt.Errorf("rows affected: %w", err))
	}
	return n, nil
}
