package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockgraph/schemadb/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("MONGO_DATABASE", "schemadb_test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.InputDir)
	assert.Equal(t, "schemadb_versions", cfg.VersionCollection)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 30*time.Second, cfg.OperationTimeout)
	assert.Equal(t, 10*time.Minute, cfg.PipelineTimeout)
	assert.Equal(t, 60*time.Minute, cfg.TransitionTimeout)
	assert.False(t, cfg.AutoProcess)
}

func TestLoadFailsWithoutRequiredMongoDatabase(t *testing.T) {
	os.Clearenv()
	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidateRejectsEmptyInputDir(t *testing.T) {
	cfg := validConfig()
	cfg.InputDir = ""
	assert.Error(t, config.Validate(cfg))
}

func TestValidateRejectsNegativeMaxWorkers(t *testing.T) {
	cfg := validConfig()
	cfg.MaxWorkers = -1
	assert.Error(t, config.Validate(cfg))
}

func TestValidateRejectsNonPositiveTimeouts(t *testing.T) {
	cfg := validConfig()
	cfg.OperationTimeout = 0
	assert.Error(t, config.Validate(cfg))
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, config.Validate(validConfig()))
}

func validConfig() config.Config {
	return config.Config{
		InputDir:          ".",
		MongoDatabase:     "schemadb_test",
		VersionCollection: "schemadb_versions",
		MaxWorkers:        4,
		OperationTimeout:  30 * time.Second,
		PipelineTimeout:   10 * time.Minute,
		TransitionTimeout: 60 * time.Minute,
	}
}
