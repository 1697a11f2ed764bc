// Package search finds an owner's documents whose top-level values match a
// term.
//
// Two tiers run the same match rule. Tier 1 is the store's native
// QueryContains. When the store reports store.ErrCapabilityUnsupported, tier 2
// loads every document of the owner and filters them with Match.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// Match reports whether any top-level value of payload matches term. A
// String value matches a String term that it contains (case-sensitive);
// any value matches a term it strictly equals.
func Match(payload value.Object, term value.Value) bool {
	for _, p := range payload {
		if matchValue(p.Value, term) {
			return true
		}
	}
	return false
}

func matchValue(v, term value.Value) bool {
	if s, ok := v.(value.String); ok {
		if t, ok := term.(value.String); ok {
			return strings.Contains(string(s), string(t))
		}
	}
	return value.Equal(v, term)
}

// Documents returns the owner's documents matching term in creation order.
// Store failures other than store.ErrCapabilityUnsupported are returned
// unchanged.
func Documents(ctx context.Context, st store.Store, owner store.OwnerRef, term value.Value, logger *slog.Logger) ([]store.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	docs, err := st.QueryContains(ctx, owner, term)
	if err == nil {
		return docs, nil
	}
	if !errors.Is(err, store.ErrCapabilityUnsupported) {
		return nil, err
	}

	logger.DebugContext(ctx, "native search unsupported, scanning documents",
		"owner", owner.String(),
		"error", err,
	)

	all, err := st.FindAllByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	matched := make([]store.Document, 0, len(all))
	for _, doc := range all {
		if Match(doc.Payload, term) {
			matched = append(matched, doc)
		}
	}
	return matched, nil
}
