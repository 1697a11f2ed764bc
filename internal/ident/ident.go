// Package ident generates document identifiers.
package ident

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces unique, lexicographically sortable document
// identifiers. Implemented by ULIDGenerator (default), UUIDv7Generator and
// FixedGenerator (tests).
type Generator interface {
	Generate() string
}

// ULIDGenerator generates time-ordered ULIDs.
//
// Identifiers created within the same millisecond increase monotonically,
// so sorting them as strings gives creation order.
//
// Format: "01ARZ3NDEKTSV4RRFFQ69G5FAV" (26 characters, Crockford base32)
//
// Thread-safety: ULIDGenerator is safe for concurrent use via internal mutex.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewULIDGenerator creates a ULID generator seeded from crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Generate returns a new ULID string.
//
// Panics if the monotonic entropy overflows within one millisecond (needs
// more than 2^80 identifiers in that millisecond).
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Format: "550e8400-e29b-41d4-a716-446655440000" (36 characters)
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined identifiers for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("doc-1", "doc-2")
//	gen.Generate() // "doc-1"
//	gen.Generate() // "doc-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, to catch a test that creates more
// documents than it expected.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SequenceGenerator returns prefix-0001, prefix-0002, ... without limit.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal
// mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a sequence generator. An empty prefix
// defaults to "doc".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "doc"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Format names an identifier format.
type Format string

const (
	FormatULID   Format = "ulid"
	FormatUUIDv7 Format = "uuidv7"
)

// New returns a generator for format. An empty format selects ULID.
func New(format Format) (Generator, error) {
	switch format {
	case "", FormatULID:
		return NewULIDGenerator(), nil
	case FormatUUIDv7:
		return UUIDv7Generator{}, nil
	default:
		return nil, fmt.Errorf("unknown id format %q (expected %q or %q)", format, FormatULID, FormatUUIDv7)
	}
}
