package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/metastore/internal/value"
)

// GetAttributes returns the owner's payload, or only the keys listed in the
// "key" query parameter.
func (h *Handler) GetAttributes(c *gin.Context) {
	ctx := c.Request.Context()
	m := h.one(c)

	exists, err := m.Exists(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !exists {
		notFound(c, "attributes")
		return
	}

	payload, err := m.Get(ctx, keys(c)...)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeValue(c, http.StatusOK, payload)
}

// CreateAttributes creates the owner's document. It conflicts when one
// exists.
func (h *Handler) CreateAttributes(c *gin.Context) {
	payload, ok := readObject(c)
	if !ok {
		return
	}

	doc, err := h.one(c).Create(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "attributes already exist"})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// SyncAttributes replaces the payload, creating the document when absent.
func (h *Handler) SyncAttributes(c *gin.Context) {
	payload, ok := readObject(c)
	if !ok {
		return
	}

	synced, err := h.one(c).Sync(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !synced {
		unprocessable(c, "attributes not synced")
		return
	}
	result(c, http.StatusOK, true)
}

// AddAttributeKeys merges the body into the payload.
func (h *Handler) AddAttributeKeys(c *gin.Context) {
	add, ok := readObject(c)
	if !ok {
		return
	}
	if value.IsEmpty(add) {
		unprocessable(c, "no keys given")
		return
	}

	added, err := h.one(c).AddKeys(c.Request.Context(), add)
	if err != nil {
		h.fail(c, err)
		return
	}
	result(c, http.StatusOK, added)
}

// DeleteAttributes removes the owner's document.
func (h *Handler) DeleteAttributes(c *gin.Context) {
	deleted, err := h.one(c).Delete(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		notFound(c, "attributes")
		return
	}
	result(c, http.StatusOK, true)
}

// ClearAttributes sets the payload to null and keeps the document.
func (h *Handler) ClearAttributes(c *gin.Context) {
	cleared, err := h.one(c).Clear(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if !cleared {
		notFound(c, "attributes")
		return
	}
	result(c, http.StatusOK, true)
}

// ClearAttributeKeys removes the keys listed in the "key" query parameter.
func (h *Handler) ClearAttributeKeys(c *gin.Context) {
	list := keys(c)
	if value.KeysEmpty(list) {
		unprocessable(c, "no keys given")
		return
	}

	cleared, err := h.one(c).ClearKeys(c.Request.Context(), list...)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !cleared {
		notFound(c, "attributes")
		return
	}
	result(c, http.StatusOK, true)
}

// GetAttributeKey returns the value of a single top-level key.
func (h *Handler) GetAttributeKey(c *gin.Context) {
	key := c.Param("key")
	payload, err := h.one(c).Get(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	v, ok := payload.Get(key)
	if !ok {
		notFound(c, "key")
		return
	}
	h.writeValue(c, http.StatusOK, v)
}
