package migrate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/dbcap"
	"github.com/blockgraph/schemadb/migrate"
	"github.com/blockgraph/schemadb/schema"
)

func TestRunExecutesPipelinesInOrder(t *testing.T) {
	mock := dbcap.NewMock()
	var seen []string
	mock.AggregateFunc = func(ctx context.Context, collection string, pipeline []map[string]any) error {
		seen = append(seen, collection)
		return nil
	}

	mgr := migrate.New(mock)
	err := mgr.Run(context.Background(), "users", []schema.Pipeline{
		{{"$addFields": map[string]any{"x": 1}}, {"$merge": map[string]any{"into": "users"}}},
		{{"$set": map[string]any{"y": 2}}, {"$out": "users"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "users"}, seen)
}

func TestRunAbortsOnFirstFailureWithPipelineIndex(t *testing.T) {
	mock := dbcap.NewMock()
	calls := 0
	mock.AggregateFunc = func(ctx context.Context, collection string, pipeline []map[string]any) error {
		calls++
		if calls == 2 {
			return errors.New("boom")
		}
		return nil
	}

	mgr := migrate.New(mock)
	err := mgr.Run(context.Background(), "users", []schema.Pipeline{
		{{"$merge": map[string]any{"into": "users"}}},
		{{"$merge": map[string]any{"into": "users"}}},
		{{"$merge": map[string]any{"into": "users"}}},
	})
	require.Error(t, err)
	serr, ok := err.(*schemadb.Error)
	require.True(t, ok)
	assert.Equal(t, schemadb.KindMigrationFailed, serr.Kind)
	assert.Contains(t, serr.Message, "pipeline 1")
	assert.Equal(t, 2, calls) // third pipeline never runs
}

func TestRunToleratesPipelineWithoutTerminalStage(t *testing.T) {
	mgr := migrate.New(dbcap.NewMock())
	err := mgr.Run(context.Background(), "users", []schema.Pipeline{
		{{"$addFields": map[string]any{"x": 1}}},
	})
	require.NoError(t, err)
}
