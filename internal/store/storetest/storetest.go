// Package storetest holds the behavioral test suite every store.Store
// backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// Factory returns a fresh, empty store for a single test.
type Factory func(t *testing.T) store.Store

var (
	ownerA = store.OwnerRef{Type: "user", ID: "1"}
	ownerB = store.OwnerRef{Type: "user", ID: "2"}
)

// Run runs the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newStore(t)) })
	t.Run("CreateDuplicateID", func(t *testing.T) { testCreateDuplicateID(t, newStore(t)) })
	t.Run("FindScopedToOwner", func(t *testing.T) { testFindScopedToOwner(t, newStore(t)) })
	t.Run("FindAllByOwnerOrder", func(t *testing.T) { testFindAllByOwnerOrder(t, newStore(t)) })
	t.Run("Exists", func(t *testing.T) { testExists(t, newStore(t)) })
	t.Run("UpdateByID", func(t *testing.T) { testUpdateByID(t, newStore(t)) })
	t.Run("UpdateClearedAndEmpty", func(t *testing.T) { testUpdateClearedAndEmpty(t, newStore(t)) })
	t.Run("DeleteByID", func(t *testing.T) { testDeleteByID(t, newStore(t)) })
	t.Run("DeleteAllByOwner", func(t *testing.T) { testDeleteAllByOwner(t, newStore(t)) })
	t.Run("QueryContains", func(t *testing.T) { testQueryContains(t, newStore(t)) })
	t.Run("CreateMany", func(t *testing.T) { testCreateMany(t, newStore(t)) })
}

func mustCreate(t *testing.T, st store.Store, id string, owner store.OwnerRef, payload value.Object) store.Document {
	t.Helper()
	doc, err := st.Create(context.Background(), store.Document{ID: id, Owner: owner, Payload: payload})
	require.NoError(t, err)
	return doc
}

func ids(docs []store.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func testCreateAndFind(t *testing.T, st store.Store) {
	ctx := context.Background()
	payload := value.NewObject(
		value.O("greeting", value.String("مرحبا")),
		value.O("score", value.Float(1.5)),
		value.O("count", value.Int(3)),
		value.O("whole", value.Float(2)),
		value.O("tags", value.Array{value.String("a"), value.Bool(true)}),
		value.O("nested", value.NewObject(value.O("b", value.Int(1)), value.O("a", value.Null{}))),
	)

	created := mustCreate(t, st, "doc-1", ownerA, payload)
	assert.Equal(t, "doc-1", created.ID)
	assert.Equal(t, ownerA, created.Owner)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	found, err := st.Find(ctx, ownerA, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", found.ID)
	assert.Equal(t, ownerA, found.Owner)
	assert.True(t, value.Equal(payload, found.Payload), "payload %s != %s", payload, found.Payload)
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
}

func testCreateDuplicateID(t *testing.T, st store.Store) {
	mustCreate(t, st, "doc-1", ownerA, value.Object{})

	_, err := st.Create(context.Background(), store.Document{ID: "doc-1", Owner: ownerB, Payload: value.Object{}})
	assert.Error(t, err)
}

func testFindScopedToOwner(t *testing.T, st store.Store) {
	ctx := context.Background()
	mustCreate(t, st, "doc-1", ownerA, value.Object{})

	_, err := st.Find(ctx, ownerB, "doc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Find(ctx, ownerA, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testFindAllByOwnerOrder(t *testing.T, st store.Store) {
	ctx := context.Background()

	empty, err := st.FindAllByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	mustCreate(t, st, "doc-1", ownerA, value.NewObject(value.O("n", value.Int(1))))
	mustCreate(t, st, "doc-x", ownerB, value.Object{})
	mustCreate(t, st, "doc-2", ownerA, value.NewObject(value.O("n", value.Int(2))))
	mustCreate(t, st, "doc-3", ownerA, nil)

	docs, err := st.FindAllByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1", "doc-2", "doc-3"}, ids(docs))
	assert.Nil(t, docs[2].Payload)

	docs, err = st.FindAllByOwner(ctx, ownerB)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-x"}, ids(docs))
}

func testExists(t *testing.T, st store.Store) {
	ctx := context.Background()

	ok, err := st.Exists(ctx, ownerA)
	require.NoError(t, err)
	assert.False(t, ok)

	mustCreate(t, st, "doc-1", ownerA, nil)

	ok, err = st.Exists(ctx, ownerA)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Exists(ctx, ownerB)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testUpdateByID(t *testing.T, st store.Store) {
	ctx := context.Background()
	created := mustCreate(t, st, "doc-1", ownerA, value.NewObject(value.O("a", value.Int(1))))

	replacement := value.NewObject(value.O("b", value.String("two")), value.O("a", value.Int(9)))
	n, err := st.UpdateByID(ctx, ownerA, "doc-1", replacement)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := st.Find(ctx, ownerA, "doc-1")
	require.NoError(t, err)
	assert.True(t, value.Equal(replacement, found.Payload), "payload %s", found.Payload)
	assert.False(t, found.UpdatedAt.Before(created.CreatedAt))

	n, err = st.UpdateByID(ctx, ownerB, "doc-1", value.Object{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = st.UpdateByID(ctx, ownerA, "missing", value.Object{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	found, err = st.Find(ctx, ownerA, "doc-1")
	require.NoError(t, err)
	assert.True(t, value.Equal(replacement, found.Payload))
}

func testUpdateClearedAndEmpty(t *testing.T, st store.Store) {
	ctx := context.Background()
	mustCreate(t, st, "doc-1", ownerA, value.NewObject(value.O("a", value.Int(1))))

	_, err := st.UpdateByID(ctx, ownerA, "doc-1", nil)
	require.NoError(t, err)
	found, err := st.Find(ctx, ownerA, "doc-1")
	require.NoError(t, err)
	assert.Nil(t, found.Payload)

	_, err = st.UpdateByID(ctx, ownerA, "doc-1", value.Object{})
	require.NoError(t, err)
	found, err = st.Find(ctx, ownerA, "doc-1")
	require.NoError(t, err)
	assert.NotNil(t, found.Payload)
	assert.Equal(t, 0, found.Payload.Len())
}

func testDeleteByID(t *testing.T, st store.Store) {
	ctx := context.Background()
	mustCreate(t, st, "doc-1", ownerA, value.Object{})

	n, err := st.DeleteByID(ctx, ownerB, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = st.DeleteByID(ctx, ownerA, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = st.Find(ctx, ownerA, "doc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err = st.DeleteByID(ctx, ownerA, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func testDeleteAllByOwner(t *testing.T, st store.Store) {
	ctx := context.Background()
	mustCreate(t, st, "doc-1", ownerA, value.Object{})
	mustCreate(t, st, "doc-2", ownerA, value.Object{})
	mustCreate(t, st, "doc-3", ownerB, value.Object{})

	n, err := st.DeleteAllByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := st.Exists(ctx, ownerA)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = st.Exists(ctx, ownerB)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = st.DeleteAllByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func testQueryContains(t *testing.T, st store.Store) {
	ctx := context.Background()

	_, err := st.QueryContains(ctx, ownerA, value.String("x"))
	if errors.Is(err, store.ErrCapabilityUnsupported) {
		t.Skip("backend has no native containment query")
	}
	require.NoError(t, err)

	mustCreate(t, st, "doc-1", ownerA, value.NewObject(value.O("lang", value.String("Arabic")), value.O("rank", value.Int(1))))
	mustCreate(t, st, "doc-2", ownerA, value.NewObject(value.O("lang", value.String("English")), value.O("ratio", value.Float(0.5))))
	mustCreate(t, st, "doc-3", ownerA, value.NewObject(value.O("active", value.Bool(true)), value.O("tags", value.Array{value.String("x")})))
	mustCreate(t, st, "doc-4", ownerA, nil)
	mustCreate(t, st, "doc-5", ownerB, value.NewObject(value.O("lang", value.String("Arabic"))))

	tests := []struct {
		name string
		term value.Value
		want []string
	}{
		{"exact string", value.String("Arabic"), []string{"doc-1"}},
		{"substring", value.String("Arab"), []string{"doc-1"}},
		{"case sensitive", value.String("arabic"), []string{}},
		{"shared substring", value.String("i"), []string{"doc-1", "doc-2"}},
		{"integer", value.Int(1), []string{"doc-1"}},
		{"float", value.Float(0.5), []string{"doc-2"}},
		{"bool", value.Bool(true), []string{"doc-3"}},
		{"array", value.Array{value.String("x")}, []string{"doc-3"}},
		{"nested values are not scanned", value.String("x"), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := st.QueryContains(ctx, ownerA, tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(docs))
		})
	}
}

func testCreateMany(t *testing.T, st store.Store) {
	bc, ok := st.(store.BatchCreator)
	if !ok {
		t.Skip("backend does not create batches")
	}
	ctx := context.Background()

	created, err := bc.CreateMany(ctx, []store.Document{
		{ID: "doc-1", Owner: ownerA, Payload: value.NewObject(value.O("a", value.Int(1)))},
		{ID: "doc-2", Owner: ownerA, Payload: value.NewObject(value.O("b", value.Int(2)))},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1", "doc-2"}, ids(created))
	for _, doc := range created {
		assert.False(t, doc.CreatedAt.IsZero())
	}

	_, err = bc.CreateMany(ctx, []store.Document{
		{ID: "doc-3", Owner: ownerA, Payload: value.Object{}},
		{ID: "doc-1", Owner: ownerA, Payload: value.Object{}},
	})
	require.Error(t, err)

	docs, err := st.FindAllByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1", "doc-2"}, ids(docs), "failed batch must not write")
}
