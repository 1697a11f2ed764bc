package dynamo

import "time"

// Config holds configuration for the Store.
type Config struct {
	// Table is the name of the document table.
	// Default: "attribute_documents"
	Table string
}

// DefaultConfig returns the default table name.
func DefaultConfig() Config {
	return Config{
		Table: "attribute_documents",
	}
}

// validate fills in a missing table name.
func (c *Config) validate() {
	def := DefaultConfig()
	if c.Table == "" {
		c.Table = def.Table
	}
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}
