package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

const documentColumns = `d.id, d.owner_type, d.owner_id, d.payload, d.created_at, d.updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Find implements store.Store.
// Returns store.ErrNotFound if the owner has no document with that id.
func (s *Store) Find(ctx context.Context, owner store.OwnerRef, id string) (store.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM attribute_documents d
		WHERE d.id = ? AND d.owner_type = ? AND d.owner_id = ?
	`, id, owner.Type, owner.ID)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, Error.Wrap(err)
	}
	return doc, nil
}

// FindAllByOwner implements store.Store.
// Results are ordered by seq (creation order). Returns an empty slice (not
// nil) if the owner has no documents.
func (s *Store) FindAllByOwner(ctx context.Context, owner store.OwnerRef) ([]store.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM attribute_documents d
		WHERE d.owner_type = ? AND d.owner_id = ?
		ORDER BY d.seq ASC
	`, owner.Type, owner.ID)
}

// Exists implements store.Store.
func (s *Store) Exists(ctx context.Context, owner store.OwnerRef) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attribute_documents
			WHERE owner_type = ? AND owner_id = ?
		)
	`, owner.Type, owner.ID).Scan(&exists)
	if err != nil {
		return false, Error.Wrap(fmt.Errorf("check documents of %s: %w", owner, err))
	}
	return exists, nil
}

// QueryContains implements store.Store using json_each over the top-level
// payload values. String values match a string term by substring (instr is
// case-sensitive); every other term matches values of the same JSON type
// and equal content.
func (s *Store) QueryContains(ctx context.Context, owner store.OwnerRef, term value.Value) ([]store.Document, error) {
	cond, arg, err := containsCondition(term)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	args := []any{owner.Type, owner.ID}
	if arg != nil {
		args = append(args, arg)
	}

	docs, err := s.queryDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM attribute_documents d
		WHERE d.owner_type = ? AND d.owner_id = ?
		AND EXISTS (SELECT 1 FROM json_each(d.payload) je WHERE `+cond+`)
		ORDER BY d.seq ASC
	`, args...)
	if err != nil && isMissingJSON(err) {
		return nil, fmt.Errorf("%w: %v", store.ErrCapabilityUnsupported, err)
	}
	return docs, err
}

// containsCondition builds the json_each predicate for term and its single
// bind argument (nil when the predicate takes none).
func containsCondition(term value.Value) (string, any, error) {
	switch t := term.(type) {
	case nil, value.Null:
		return "je.type = 'null'", nil, nil
	case value.String:
		return "je.type = 'text' AND instr(je.atom, ?) > 0", string(t), nil
	case value.Int:
		return "je.type = 'integer' AND je.atom = ?", int64(t), nil
	case value.Float:
		return "je.type = 'real' AND je.atom = ?", float64(t), nil
	case value.Bool:
		if t {
			return "je.type = 'true'", nil, nil
		}
		return "je.type = 'false'", nil, nil
	case value.Array, value.Object:
		data, err := value.Marshal(t)
		if err != nil {
			return "", nil, fmt.Errorf("marshal search term: %w", err)
		}
		kind := "array"
		if _, ok := t.(value.Object); ok {
			kind = "object"
		}
		return "je.type = '" + kind + "' AND je.value = json(?)", string(data), nil
	default:
		return "", nil, fmt.Errorf("unsupported search term %T", term)
	}
}

// isMissingJSON reports whether err comes from a SQLite build without the
// JSON1 functions.
func isMissingJSON(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table: json_each") ||
		strings.Contains(msg, "no such function: json")
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]store.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("query documents: %w", err))
	}
	defer rows.Close()

	docs := []store.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(fmt.Errorf("iterate documents: %w", err))
	}
	return docs, nil
}

// scanDocument scans a row selected with documentColumns.
func scanDocument(row rowScanner) (store.Document, error) {
	var doc store.Document
	var payload sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(
		&doc.ID, &doc.Owner.Type, &doc.Owner.ID, &payload, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, err
		}
		return store.Document{}, fmt.Errorf("scan document: %w", err)
	}

	var err error
	if doc.Payload, err = unmarshalPayload(payload); err != nil {
		return store.Document{}, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return store.Document{}, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return store.Document{}, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	return doc, nil
}
