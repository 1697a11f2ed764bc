// Package cascade deletes the attribute documents of removed owners.
//
// Owners are rows of DynamoDB tables with streams enabled. When a row is
// removed, the stream delivers a REMOVE record; the handler maps the record's
// table to an owner type, reads the owner id from the record's keys and
// deletes every document of that owner.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/roach88/metastore/internal/store"
)

// Binding maps an owner table to the owner type its rows represent.
type Binding struct {
	// Table is the DynamoDB table name holding the owners.
	Table string

	// OwnerType is the owner type stored with the documents.
	OwnerType string

	// KeyAttr is the key attribute holding the owner id.
	// Default: "id"
	KeyAttr string
}

// Handler processes DynamoDB stream events for owner removal.
type Handler struct {
	store    store.Store
	bindings map[string]Binding
	logger   *slog.Logger
}

// NewHandler creates a handler for the given owner tables.
func NewHandler(st store.Store, bindings []Binding, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		store:    st,
		bindings: make(map[string]Binding, len(bindings)),
		logger:   logger,
	}
	for _, b := range bindings {
		if b.KeyAttr == "" {
			b.KeyAttr = "id"
		}
		h.bindings[b.Table] = b
	}
	return h
}

// HandleOwnerRemoval processes stream records in order and stops at the first
// failure so the batch is retried.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleOwnerRemoval(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != string(events.DynamoDBOperationTypeRemove) {
		return nil
	}

	table := TableFromARN(record.EventSourceArn)
	binding, ok := h.bindings[table]
	if !ok {
		h.logger.Debug("ignoring record from unbound table",
			"eventID", record.EventID,
			"table", table,
		)
		return nil
	}

	ownerID := keyString(record.Change.Keys, binding.KeyAttr)
	if ownerID == "" {
		return fmt.Errorf("record %s: key attribute %q missing", record.EventID, binding.KeyAttr)
	}
	owner := store.OwnerRef{Type: binding.OwnerType, ID: ownerID}

	n, err := h.store.DeleteAllByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("delete documents of %s: %w", owner, err)
	}

	h.logger.Info("cascade delete completed",
		"owner", owner.String(),
		"documents", n,
	)
	return nil
}

// TableFromARN extracts the table name from a table or stream ARN such as
// arn:aws:dynamodb:us-east-1:123456789012:table/users/stream/2024-01-01T00:00:00.000.
func TableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	table, _, _ := strings.Cut(rest, "/")
	return table
}

// keyString reads a string or number key attribute.
func keyString(keys map[string]events.DynamoDBAttributeValue, name string) string {
	v, ok := keys[name]
	if !ok {
		return ""
	}
	switch v.DataType() {
	case events.DataTypeString:
		return v.String()
	case events.DataTypeNumber:
		return v.Number()
	default:
		return ""
	}
}

// ParseBindings parses "table=type[:keyAttr]" entries separated by commas,
// e.g. "users=user,posts=post:post_id".
func ParseBindings(spec string) ([]Binding, error) {
	var bindings []Binding
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		table, target, ok := strings.Cut(entry, "=")
		if !ok || table == "" || target == "" {
			return nil, fmt.Errorf("invalid binding %q: want table=type[:keyAttr]", entry)
		}
		ownerType, keyAttr, _ := strings.Cut(target, ":")
		if ownerType == "" {
			return nil, fmt.Errorf("invalid binding %q: empty owner type", entry)
		}
		bindings = append(bindings, Binding{Table: table, OwnerType: ownerType, KeyAttr: keyAttr})
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("no owner tables bound")
	}
	return bindings, nil
}
