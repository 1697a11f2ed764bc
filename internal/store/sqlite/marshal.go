package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/metastore/internal/value"
)

// timeLayout is RFC 3339 with a fixed nine-digit fraction so stored
// timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// marshalPayload converts a payload to JSON TEXT. A nil payload is stored as
// SQL NULL.
func marshalPayload(payload value.Object) (sql.NullString, error) {
	if payload == nil {
		return sql.NullString{}, nil
	}
	data, err := value.Marshal(payload)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal payload: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalPayload parses stored JSON TEXT. SQL NULL yields a nil payload.
func unmarshalPayload(data sql.NullString) (value.Object, error) {
	if !data.Valid {
		return nil, nil
	}
	obj, err := value.UnmarshalObject([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
