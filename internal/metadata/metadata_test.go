package metadata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/metastore/internal/ident"
	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/store/memory"
	"github.com/roach88/metastore/internal/store/sqlite"
	"github.com/roach88/metastore/internal/testutil"
	"github.com/roach88/metastore/internal/value"
)

var (
	alice = testutil.User{ID: "1"}
	bob   = testutil.User{ID: "2"}
)

type backend struct {
	name string
	open func(t *testing.T) store.Store
}

var backends = []backend{
	{
		name: "memory",
		open: func(t *testing.T) store.Store {
			return memory.New(memory.WithClock(testutil.NewStepClock().Now))
		},
	},
	{
		name: "sqlite",
		open: func(t *testing.T) store.Store {
			t.Helper()
			s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"),
				sqlite.WithClock(testutil.NewStepClock().Now))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	},
}

// eachBackend runs fn once per store backend.
func eachBackend(t *testing.T, fn func(t *testing.T, st store.Store)) {
	t.Helper()
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

// seq returns options giving predictable document ids doc-0001, doc-0002, ...
func seq() Option {
	return WithIDGenerator(ident.NewSequenceGenerator("doc"))
}

func obj(pairs ...value.Pair) value.Object {
	return value.NewObject(pairs...)
}

// stored returns the payload exactly as the store holds it.
func stored(t *testing.T, st store.Store, owner store.Owner, id string) value.Object {
	t.Helper()
	doc, err := st.Find(context.Background(), store.RefOf(owner), id)
	require.NoError(t, err)
	return doc.Payload
}

var errBoom = errors.New("boom")

// failingStore fails every call.
type failingStore struct {
	store.Store
}

func (failingStore) Create(context.Context, store.Document) (store.Document, error) {
	return store.Document{}, errBoom
}

func (failingStore) Find(context.Context, store.OwnerRef, string) (store.Document, error) {
	return store.Document{}, errBoom
}

func (failingStore) FindAllByOwner(context.Context, store.OwnerRef) ([]store.Document, error) {
	return nil, errBoom
}

func (failingStore) Exists(context.Context, store.OwnerRef) (bool, error) {
	return false, errBoom
}

func (failingStore) UpdateByID(context.Context, store.OwnerRef, string, value.Object) (int64, error) {
	return 0, errBoom
}

func (failingStore) DeleteByID(context.Context, store.OwnerRef, string) (int64, error) {
	return 0, errBoom
}

func (failingStore) DeleteAllByOwner(context.Context, store.OwnerRef) (int64, error) {
	return 0, errBoom
}

func (failingStore) QueryContains(context.Context, store.OwnerRef, value.Value) ([]store.Document, error) {
	return nil, errBoom
}

// plainStore hides the BatchCreator of the wrapped store.
type plainStore struct {
	store.Store
}
