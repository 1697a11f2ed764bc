package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metastore/internal/ident"
	"github.com/roach88/metastore/internal/metadata"
	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/store/memory"
	"github.com/roach88/metastore/internal/testutil"
)

func setupTestRouter(st store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{
		Store:   st,
		Options: []metadata.Option{metadata.WithIDGenerator(ident.NewSequenceGenerator("doc"))},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return NewRouter(h)
}

func newStore() store.Store {
	return memory.New(memory.WithClock(testutil.NewStepClock().Now))
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAttributesLifecycle(t *testing.T) {
	r := setupTestRouter(newStore())
	const base = "/owners/user/1/attributes"

	w := do(t, r, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, base, `{"theme":"dark","lang":"العربية"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc store.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "doc-0001", doc.ID)
	assert.Equal(t, store.OwnerRef{Type: "user", ID: "1"}, doc.Owner)

	w = do(t, r, http.MethodPost, base, `{"other":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"theme":"dark","lang":"العربية"}`, w.Body.String())

	w = do(t, r, http.MethodPatch, base, `{"size":12,"theme":"light"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = do(t, r, http.MethodGet, base+"?key=size,theme", "")
	assert.Equal(t, `{"theme":"light","size":12}`, w.Body.String())

	w = do(t, r, http.MethodGet, base+"/keys/size", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `12`, w.Body.String())

	w = do(t, r, http.MethodGet, base+"/keys/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, base+"/keys?key=theme&key=lang", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, base, "")
	assert.Equal(t, `{"size":12}`, w.Body.String())

	w = do(t, r, http.MethodPost, base+"/clear", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{}`, w.Body.String())

	w = do(t, r, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttributesSyncCreates(t *testing.T) {
	r := setupTestRouter(newStore())

	w := do(t, r, http.MethodPut, "/owners/post/9/attributes", `{"a":1.0}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/owners/post/9/attributes", "")
	assert.Equal(t, `{"a":1.0}`, w.Body.String())
}

func TestAttributesBadRequests(t *testing.T) {
	r := setupTestRouter(newStore())
	const base = "/owners/user/1/attributes"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"invalid JSON", http.MethodPost, base, `{"a":`, http.StatusBadRequest},
		{"not an object", http.MethodPost, base, `[1]`, http.StatusBadRequest},
		{"empty keys", http.MethodPatch, base, `{}`, http.StatusUnprocessableEntity},
		{"no keys to clear", http.MethodDelete, base + "/keys", "", http.StatusUnprocessableEntity},
		{"clear keys without document", http.MethodDelete, base + "/keys?key=a", "", http.StatusNotFound},
		{"clear without document", http.MethodPost, base + "/clear", "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/nothing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestDocumentsLifecycle(t *testing.T) {
	r := setupTestRouter(newStore())
	const base = "/owners/user/1/documents"

	w := do(t, r, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `[]`, w.Body.String())

	w = do(t, r, http.MethodPost, base, `[{"lang":"Arabic","rank":1},{"lang":"English","rank":2}]`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, base, `{"lang":"French"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodGet, base, "")
	assert.Equal(t, `[{"id":"doc-0001","lang":"Arabic","rank":1},{"id":"doc-0002","lang":"English","rank":2},{"id":"doc-0003","lang":"French"}]`, w.Body.String())

	w = do(t, r, http.MethodGet, base+"?q=Arab", "")
	assert.Equal(t, `[{"id":"doc-0001","lang":"Arabic","rank":1}]`, w.Body.String())

	w = do(t, r, http.MethodGet, base+"?q=2", "")
	assert.Equal(t, `[{"id":"doc-0002","lang":"English","rank":2}]`, w.Body.String())

	w = do(t, r, http.MethodGet, base+"/doc-0001?key=rank", "")
	assert.Equal(t, `{"rank":1}`, w.Body.String())

	w = do(t, r, http.MethodPatch, base+"/doc-0001", `{"active":true}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodDelete, base+"/doc-0001/keys?key=rank", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, base+"/doc-0001", "")
	assert.Equal(t, `{"id":"doc-0001","lang":"Arabic","active":true}`, w.Body.String())

	w = do(t, r, http.MethodPut, base+"/doc-0002", `{"id":"ignored","lang":"Greek"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, base+"/doc-0002", "")
	assert.Equal(t, `{"id":"doc-0002","lang":"Greek"}`, w.Body.String())

	w = do(t, r, http.MethodPost, base+"/doc-0003/clear", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, base+"/doc-0003", "")
	assert.Equal(t, `{"id":"doc-0003"}`, w.Body.String())

	w = do(t, r, http.MethodDelete, base+"/doc-0003", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPut, base, `[{"lang":"Turkish"}]`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, base, "")
	assert.Equal(t, `[{"id":"doc-0004","lang":"Turkish"}]`, w.Body.String())

	w = do(t, r, http.MethodDelete, base, "")
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = do(t, r, http.MethodGet, base, "")
	assert.Equal(t, `[]`, w.Body.String())
}

func TestDocumentsFailures(t *testing.T) {
	r := setupTestRouter(newStore())
	const base = "/owners/user/1/documents"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"batch with empty element", http.MethodPost, base, `[{"a":1},{}]`, http.StatusUnprocessableEntity},
		{"sync flat object", http.MethodPut, base, `{"a":1}`, http.StatusUnprocessableEntity},
		{"sync empty element", http.MethodPut, base, `[{}]`, http.StatusUnprocessableEntity},
		{"get missing", http.MethodGet, base + "/missing", "", http.StatusNotFound},
		{"update missing", http.MethodPut, base + "/missing", `{"a":1}`, http.StatusNotFound},
		{"add to missing", http.MethodPatch, base + "/missing", `{"a":1}`, http.StatusNotFound},
		{"add empty keys", http.MethodPatch, base + "/missing", `{}`, http.StatusUnprocessableEntity},
		{"delete missing", http.MethodDelete, base + "/missing", "", http.StatusNotFound},
		{"clear missing", http.MethodPost, base + "/missing/clear", "", http.StatusNotFound},
		{"clear keys without keys", http.MethodDelete, base + "/missing/keys", "", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) FindAllByOwner(context.Context, store.OwnerRef) ([]store.Document, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Exists(context.Context, store.OwnerRef) (bool, error) {
	return false, errors.New("disk on fire")
}

func TestStoreFailureIsInternalError(t *testing.T) {
	r := setupTestRouter(failingStore{})

	w := do(t, r, http.MethodGet, "/owners/user/1/documents", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/owners/user/1/attributes", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
