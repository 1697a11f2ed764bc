package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/testutil"
	"github.com/roach88/metastore/internal/value"
)

func TestMarshalPayload_Nil(t *testing.T) {
	data, err := marshalPayload(nil)
	require.NoError(t, err)
	assert.False(t, data.Valid)
}

func TestMarshalPayload_Empty(t *testing.T) {
	data, err := marshalPayload(value.Object{})
	require.NoError(t, err)
	assert.True(t, data.Valid)
	assert.Equal(t, "{}", data.String)
}

func TestUnmarshalPayload(t *testing.T) {
	obj, err := unmarshalPayload(sql.NullString{})
	require.NoError(t, err)
	assert.Nil(t, obj)

	obj, err = unmarshalPayload(sql.NullString{String: `{"b":1,"a":2}`, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, obj.Keys())

	_, err = unmarshalPayload(sql.NullString{String: `[1]`, Valid: true})
	assert.Error(t, err)
}

func TestFormatTime_SortsAsText(t *testing.T) {
	early := formatTime(testutil.Epoch)
	late := formatTime(testutil.Epoch.Add(1500 * time.Millisecond))

	assert.Equal(t, "2024-01-01T00:00:00.000000000Z", early)
	assert.Less(t, early, late)

	parsed, err := parseTime(late)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(testutil.Epoch.Add(1500*time.Millisecond)))
}

func TestFormatTime_NormalizesToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2024, time.January, 1, 3, 0, 0, 0, zone)

	assert.Equal(t, "2024-01-01T00:00:00.000000000Z", formatTime(local))
}

func TestPayloadStoredUnescaped(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	owner := store.OwnerRef{Type: "user", ID: "1"}

	_, err := s.Create(ctx, store.Document{
		ID:      "doc-1",
		Owner:   owner,
		Payload: value.NewObject(value.O("lang", value.String("العربية")), value.O("ratio", value.Float(2))),
	})
	require.NoError(t, err)

	var raw string
	err = s.db.QueryRow("SELECT payload FROM attribute_documents WHERE id = ?", "doc-1").Scan(&raw)
	require.NoError(t, err)
	assert.Equal(t, `{"lang":"العربية","ratio":2.0}`, raw)
}

func TestClearedPayloadStoredAsNull(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	owner := store.OwnerRef{Type: "user", ID: "1"}

	_, err := s.Create(ctx, store.Document{ID: "doc-1", Owner: owner, Payload: value.Object{}})
	require.NoError(t, err)
	_, err = s.UpdateByID(ctx, owner, "doc-1", nil)
	require.NoError(t, err)

	var raw sql.NullString
	err = s.db.QueryRow("SELECT payload FROM attribute_documents WHERE id = ?", "doc-1").Scan(&raw)
	require.NoError(t, err)
	assert.False(t, raw.Valid)
}

func TestTimestampsFromClock(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	owner := store.OwnerRef{Type: "user", ID: "1"}

	created, err := s.Create(ctx, store.Document{ID: "doc-1", Owner: owner, Payload: value.Object{}})
	require.NoError(t, err)
	assert.True(t, testutil.Epoch.Equal(created.CreatedAt))

	_, err = s.UpdateByID(ctx, owner, "doc-1", value.Object{})
	require.NoError(t, err)

	found, err := s.Find(ctx, owner, "doc-1")
	require.NoError(t, err)
	assert.True(t, testutil.Epoch.Equal(found.CreatedAt))
	assert.True(t, testutil.Epoch.Add(time.Second).Equal(found.UpdatedAt))
}

func TestReopenKeepsDocuments(t *testing.T) {
	path := t.TempDir() + "/reopen.db"
	ctx := context.Background()
	owner := store.OwnerRef{Type: "user", ID: "1"}

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.Create(ctx, store.Document{ID: "doc-1", Owner: owner, Payload: value.NewObject(value.O("a", value.Int(1)))})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	found, err := s2.Find(ctx, owner, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, value.NewObject(value.O("a", value.Int(1))), found.Payload)
}

func TestContainsCondition(t *testing.T) {
	cond, arg, err := containsCondition(value.Int(3))
	require.NoError(t, err)
	assert.Contains(t, cond, "integer")
	assert.Equal(t, int64(3), arg)

	cond, arg, err = containsCondition(value.Null{})
	require.NoError(t, err)
	assert.Equal(t, "je.type = 'null'", cond)
	assert.Nil(t, arg)
}
