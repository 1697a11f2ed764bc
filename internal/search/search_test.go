package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/store/memory"
	"github.com/roach88/metastore/internal/store/sqlite"
	"github.com/roach88/metastore/internal/value"
)

var owner = store.OwnerRef{Type: "user", ID: "1"}

func TestMatch(t *testing.T) {
	payload := value.NewObject(
		value.O("lang", value.String("Arabic")),
		value.O("rank", value.Int(2)),
		value.O("ratio", value.Float(0.5)),
		value.O("active", value.Bool(false)),
		value.O("note", value.Null{}),
		value.O("tags", value.Array{value.String("x"), value.Int(1)}),
		value.O("meta", value.NewObject(value.O("deep", value.String("hidden")))),
	)

	tests := []struct {
		name string
		term value.Value
		want bool
	}{
		{"exact string", value.String("Arabic"), true},
		{"substring", value.String("rab"), true},
		{"case mismatch", value.String("arabic"), false},
		{"integer", value.Int(2), true},
		{"integer vs float", value.Float(2), false},
		{"float", value.Float(0.5), true},
		{"bool", value.Bool(false), true},
		{"null", value.Null{}, true},
		{"string is not integer", value.String("2"), false},
		{"array", value.Array{value.String("x"), value.Int(1)}, true},
		{"array element", value.String("x"), false},
		{"object", value.NewObject(value.O("deep", value.String("hidden"))), true},
		{"nested string", value.String("hidden"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(payload, tt.term))
		})
	}
}

func TestMatchEmptyPayload(t *testing.T) {
	assert.False(t, Match(nil, value.String("")))
	assert.False(t, Match(value.Object{}, value.Null{}))
}

// failingStore reports a fixed error from QueryContains and records whether
// the fallback scan ran.
type failingStore struct {
	store.Store
	queryErr error
	scanned  bool
}

func (f *failingStore) QueryContains(context.Context, store.OwnerRef, value.Value) ([]store.Document, error) {
	return nil, f.queryErr
}

func (f *failingStore) FindAllByOwner(ctx context.Context, o store.OwnerRef) ([]store.Document, error) {
	f.scanned = true
	return f.Store.FindAllByOwner(ctx, o)
}

func seed(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	for i, payload := range []value.Object{
		value.NewObject(value.O("lang", value.String("Arabic"))),
		value.NewObject(value.O("lang", value.String("English"))),
	} {
		_, err := st.Create(ctx, store.Document{
			ID:      []string{"doc-1", "doc-2"}[i],
			Owner:   owner,
			Payload: payload,
		})
		require.NoError(t, err)
	}
}

func TestDocumentsFallsBackOnUnsupported(t *testing.T) {
	inner := memory.New()
	seed(t, inner)
	st := &failingStore{Store: inner, queryErr: store.ErrCapabilityUnsupported}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	docs, err := Documents(context.Background(), st, owner, value.String("Arab"), logger)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.True(t, st.scanned)
	assert.Contains(t, logs.String(), "native search unsupported")
}

func TestDocumentsPropagatesStoreFailure(t *testing.T) {
	inner := memory.New()
	seed(t, inner)
	boom := errors.New("disk on fire")
	st := &failingStore{Store: inner, queryErr: boom}

	_, err := Documents(context.Background(), st, owner, value.String("Arab"), nil)

	assert.ErrorIs(t, err, boom)
	assert.False(t, st.scanned)
}

func TestDocumentsTiersAgree(t *testing.T) {
	native, err := sqlite.Open(filepath.Join(t.TempDir(), "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { native.Close() })

	tiers := map[string]store.Store{
		"native": native,
		"scan":   memory.New(),
	}

	terms := []struct {
		term value.Value
		want []string
	}{
		{value.String("Arabic"), []string{"doc-1"}},
		{value.String("Arab"), []string{"doc-1"}},
		{value.String("arabic"), nil},
		{value.String("English"), []string{"doc-2"}},
		{value.String("i"), []string{"doc-1", "doc-2"}},
	}

	for name, st := range tiers {
		seed(t, st)
		for _, tt := range terms {
			t.Run(name+"/"+string(tt.term.(value.String)), func(t *testing.T) {
				docs, err := Documents(context.Background(), st, owner, tt.term, nil)
				require.NoError(t, err)

				var got []string
				for _, d := range docs {
					got = append(got, d.ID)
				}
				assert.Equal(t, tt.want, got)
			})
		}
	}
}
