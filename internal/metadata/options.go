package metadata

import (
	"io"
	"log/slog"
	"time"

	"github.com/roach88/metastore/internal/ident"
	"github.com/roach88/metastore/internal/store"
)

// DefaultIdentityKey is the payload key under which HasMany exposes a
// document's id.
const DefaultIdentityKey = "id"

// Option configures an engine.
type Option func(*config)

type config struct {
	logger          *slog.Logger
	loc             *time.Location
	ids             ident.Generator
	identityEnabled bool
	identityKey     string
}

func newConfig(opts []Option) config {
	c := config{
		loc:             time.UTC,
		identityEnabled: true,
		identityKey:     DefaultIdentityKey,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.ids == nil {
		c.ids = ident.NewULIDGenerator()
	}
	return c
}

// WithLogger sets the logger. Engines log at debug level only.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLocation sets the zone document timestamps are presented in.
// Default: UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *config) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithIDGenerator sets the generator for new document ids.
// Default: ident.ULIDGenerator.
func WithIDGenerator(gen ident.Generator) Option {
	return func(c *config) {
		c.ids = gen
	}
}

// WithIdentityKey sets the payload key HasMany uses for document ids.
// A blank name keeps DefaultIdentityKey.
func WithIdentityKey(name string) Option {
	return func(c *config) {
		if name != "" {
			c.identityKey = name
		}
	}
}

// WithoutIdentityKey disables identity key injection on HasMany reads.
func WithoutIdentityKey() Option {
	return func(c *config) {
		c.identityEnabled = false
	}
}

// normalize presents doc's timestamps in loc.
func normalize(doc store.Document, loc *time.Location) store.Document {
	doc.CreatedAt = doc.CreatedAt.In(loc)
	doc.UpdatedAt = doc.UpdatedAt.In(loc)
	return doc
}
