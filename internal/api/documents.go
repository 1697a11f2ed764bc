package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/metastore/internal/value"
)

// ListDocuments returns every payload of the owner. With a "q" query
// parameter only matching payloads are returned; q is read as JSON when it
// parses and as a plain string otherwise.
func (h *Handler) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	m := h.many(c)

	var (
		payloads []value.Object
		err      error
	)
	if q, ok := c.GetQuery("q"); ok {
		payloads, err = m.Search(ctx, searchTerm(q))
	} else {
		payloads, err = m.All(ctx)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make(value.Array, len(payloads))
	for i, p := range payloads {
		out[i] = p
	}
	h.writeValue(c, http.StatusOK, out)
}

func searchTerm(q string) value.Value {
	if v, err := value.Unmarshal([]byte(q)); err == nil {
		return v
	}
	return value.String(q)
}

// CreateDocuments creates one document from an object body, or one per
// element of a list body.
func (h *Handler) CreateDocuments(c *gin.Context) {
	body, ok := readValue(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	m := h.many(c)

	if payload, isObj := body.(value.Object); isObj {
		doc, err := m.Create(ctx, payload)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, doc)
		return
	}

	docs, err := m.CreateMany(ctx, body)
	if err != nil {
		h.fail(c, err)
		return
	}
	if docs == nil {
		unprocessable(c, "expected a list of non-empty objects")
		return
	}
	c.JSON(http.StatusCreated, docs)
}

// SyncDocuments replaces every document of the owner.
func (h *Handler) SyncDocuments(c *gin.Context) {
	body, ok := readValue(c)
	if !ok {
		return
	}

	synced, err := h.many(c).Sync(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !synced {
		unprocessable(c, "expected an empty value or a list of non-empty objects")
		return
	}
	result(c, http.StatusOK, true)
}

// DeleteDocuments removes every document of the owner.
func (h *Handler) DeleteDocuments(c *gin.Context) {
	deleted, err := h.many(c).DeleteAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	result(c, http.StatusOK, deleted)
}

// GetDocument returns a payload, or only the keys listed in the "key" query
// parameter.
func (h *Handler) GetDocument(c *gin.Context) {
	ctx := c.Request.Context()
	m := h.many(c)
	id := c.Param("doc")

	exists, err := m.ExistsByID(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !exists {
		notFound(c, "document")
		return
	}

	payload, err := m.GetByID(ctx, id, keys(c)...)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeValue(c, http.StatusOK, payload)
}

// UpdateDocument replaces a payload.
func (h *Handler) UpdateDocument(c *gin.Context) {
	payload, ok := readObject(c)
	if !ok {
		return
	}

	updated, err := h.many(c).UpdateByID(c.Request.Context(), c.Param("doc"), payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !updated {
		notFound(c, "document")
		return
	}
	result(c, http.StatusOK, true)
}

// AddDocumentKeys merges the body into a payload.
func (h *Handler) AddDocumentKeys(c *gin.Context) {
	add, ok := readObject(c)
	if !ok {
		return
	}
	if value.IsEmpty(add) {
		unprocessable(c, "no keys given")
		return
	}

	added, err := h.many(c).AddKeysByID(c.Request.Context(), c.Param("doc"), add)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !added {
		notFound(c, "document")
		return
	}
	result(c, http.StatusOK, true)
}

// DeleteDocument removes a document.
func (h *Handler) DeleteDocument(c *gin.Context) {
	deleted, err := h.many(c).DeleteByID(c.Request.Context(), c.Param("doc"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		notFound(c, "document")
		return
	}
	result(c, http.StatusOK, true)
}

// ClearDocument sets a payload to null and keeps the document.
func (h *Handler) ClearDocument(c *gin.Context) {
	cleared, err := h.many(c).ClearByID(c.Request.Context(), c.Param("doc"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !cleared {
		notFound(c, "document")
		return
	}
	result(c, http.StatusOK, true)
}

// ClearDocumentKeys removes the keys listed in the "key" query parameter.
func (h *Handler) ClearDocumentKeys(c *gin.Context) {
	list := keys(c)
	if value.KeysEmpty(list) {
		unprocessable(c, "no keys given")
		return
	}

	cleared, err := h.many(c).ClearKeysByID(c.Request.Context(), c.Param("doc"), list...)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !cleared {
		notFound(c, "document")
		return
	}
	result(c, http.StatusOK, true)
}
