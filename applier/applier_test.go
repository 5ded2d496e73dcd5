package applier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockgraph/schemadb/applier"
	"github.com/blockgraph/schemadb/dbcap"
)

func TestAddValidatorDefaultsLevelAndAction(t *testing.T) {
	mock := dbcap.NewMock()
	a := applier.New(mock)

	schema := map[string]any{"bsonType": "object"}
	require.NoError(t, a.AddValidator(context.Background(), "users", schema, "", ""))

	v, err := mock.GetValidator(context.Background(), "users")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "moderate", v.Level)
	assert.Equal(t, "error", v.Action)
}

func TestAddValidatorHonorsExplicitOverrides(t *testing.T) {
	mock := dbcap.NewMock()
	a := applier.New(mock)

	require.NoError(t, a.AddValidator(context.Background(), "users", map[string]any{}, "strict", "warn"))

	v, err := mock.GetValidator(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "strict", v.Level)
	assert.Equal(t, "warn", v.Action)
}

func TestDropValidatorIsNotAnErrorWhenAbsent(t *testing.T) {
	a := applier.New(dbcap.NewMock())
	require.NoError(t, a.DropValidator(context.Background(), "users"))
}
