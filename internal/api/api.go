// Package api exposes the metadata engines over HTTP.
//
// Routes, relative to the router root:
//
//	/owners/:type/:id/attributes             single document of an owner
//	/owners/:type/:id/documents              documents of an owner
//	/owners/:type/:id/documents/:doc         one document by id
//
// Request and response payloads are JSON objects with their key order kept.
// A failed engine operation maps to 404 (no such document) or 422 (invalid
// input); store failures map to 500.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/metastore/internal/metadata"
	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// Handler serves the attribute routes.
type Handler struct {
	Store   store.Store
	Options []metadata.Option
	Logger  *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func owner(c *gin.Context) store.OwnerRef {
	return store.OwnerRef{Type: c.Param("type"), ID: c.Param("id")}
}

func (h *Handler) one(c *gin.Context) *metadata.HasOne {
	return metadata.NewHasOne(h.Store, owner(c), h.Options...)
}

func (h *Handler) many(c *gin.Context) *metadata.HasMany {
	return metadata.NewHasMany(h.Store, owner(c), h.Options...)
}

// NewRouter returns a gin engine with request logging and every route
// registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger()))
	h.Register(r)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

// Register adds the routes to r.
func (h *Handler) Register(r gin.IRouter) {
	attrs := r.Group("/owners/:type/:id/attributes")
	{
		attrs.GET("", h.GetAttributes)
		attrs.POST("", h.CreateAttributes)
		attrs.PUT("", h.SyncAttributes)
		attrs.PATCH("", h.AddAttributeKeys)
		attrs.DELETE("", h.DeleteAttributes)
		attrs.POST("/clear", h.ClearAttributes)
		attrs.DELETE("/keys", h.ClearAttributeKeys)
		attrs.GET("/keys/:key", h.GetAttributeKey)
	}

	docs := r.Group("/owners/:type/:id/documents")
	{
		docs.GET("", h.ListDocuments)
		docs.POST("", h.CreateDocuments)
		docs.PUT("", h.SyncDocuments)
		docs.DELETE("", h.DeleteDocuments)
		docs.GET("/:doc", h.GetDocument)
		docs.PUT("/:doc", h.UpdateDocument)
		docs.PATCH("/:doc", h.AddDocumentKeys)
		docs.DELETE("/:doc", h.DeleteDocument)
		docs.POST("/:doc/clear", h.ClearDocument)
		docs.DELETE("/:doc/keys", h.ClearDocumentKeys)
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// keys reads the repeated "key" query parameter. A single parameter may list
// keys separated by commas.
func keys(c *gin.Context) []string {
	var out []string
	for _, raw := range c.QueryArray("key") {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

// readValue decodes the request body as a single JSON value.
func readValue(c *gin.Context) (value.Value, bool) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	v, err := value.Unmarshal(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return nil, false
	}
	return v, true
}

// readObject decodes the request body as a JSON object.
func readObject(c *gin.Context) (value.Object, bool) {
	v, ok := readValue(c)
	if !ok {
		return nil, false
	}
	obj, isObj := v.(value.Object)
	if !isObj {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON object, got " + value.Kind(v)})
		return nil, false
	}
	return obj, true
}

// writeValue writes v with its key order and unescaped text kept.
func (h *Handler) writeValue(c *gin.Context, status int, v value.Value) {
	data, err := value.Marshal(v)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}

// fail reports a store failure.
func (h *Handler) fail(c *gin.Context, err error) {
	h.logger().ErrorContext(c.Request.Context(), "request failed",
		"path", c.Request.URL.Path,
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func unprocessable(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
}

func result(c *gin.Context, status int, ok bool) {
	c.JSON(status, gin.H{"ok": ok})
}
