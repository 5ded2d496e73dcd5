package dbcap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockgraph/schemadb/dbcap"
)

func TestMockCreateIndexIsIdempotent(t *testing.T) {
	m := dbcap.NewMock()
	ctx := context.Background()
	spec := dbcap.IndexSpec{Name: "nameIdx", Key: []dbcap.IndexKey{{Field: "userName", Direction: 1}}}

	require.NoError(t, m.CreateIndex(ctx, "users", spec))
	require.NoError(t, m.CreateIndex(ctx, "users", spec))

	idx, err := m.ListIndexes(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, idx, 2) // _id_ plus nameIdx, not duplicated
}

func TestMockDropIndexIsNoopWhenAbsent(t *testing.T) {
	m := dbcap.NewMock()
	ctx := context.Background()
	require.NoError(t, m.DropIndex(ctx, "users", "doesNotExist"))
}

func TestMockUpsertThenFindOne(t *testing.T) {
	m := dbcap.NewMock()
	ctx := context.Background()

	require.NoError(t, m.UpsertOne(ctx, "schemaversion", map[string]any{"collection_name": "users"}, map[string]any{"version": "1.0.0.1"}))
	doc, err := m.FindOne(ctx, "schemaversion", map[string]any{"collection_name": "users"})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "1.0.0.1", doc["version"])

	require.NoError(t, m.UpsertOne(ctx, "schemaversion", map[string]any{"collection_name": "users"}, map[string]any{"version": "1.0.0.2"}))
	doc, err = m.FindOne(ctx, "schemaversion", map[string]any{"collection_name": "users"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0.2", doc["version"])
}

func TestMockSetAndClearValidator(t *testing.T) {
	m := dbcap.NewMock()
	ctx := context.Background()

	require.NoError(t, m.SetValidator(ctx, "users", map[string]any{"bsonType": "object"}, "moderate", "error"))
	v, err := m.GetValidator(ctx, "users")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "moderate", v.Level)

	require.NoError(t, m.ClearValidator(ctx, "users"))
	v, err = m.GetValidator(ctx, "users")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMockCreateIndexRejectsEmptyKey(t *testing.T) {
	m := dbcap.NewMock()
	err := m.CreateIndex(context.Background(), "users", dbcap.IndexSpec{Name: "bad"})
	require.Error(t, err)
}
