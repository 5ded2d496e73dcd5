// Package config is the typed, environment-sourced configuration for
// schemadbctl, read with github.com/caarlos0/env/v11 the same way
// apps/api/main.go in the pack's SaaS reference service populates its own
// Config struct: `env:"..."` struct tags plus one env.Parse call, never a
// hand-rolled flag/getenv parser.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Default timeouts from spec.md §5: one per database operation, one for the
// migration step of a version transition, one per whole version transition.
// The pipeline timeout bounds all of a version's aggregation pipelines
// together; a single pipeline has no timeout of its own.
const (
	DefaultOperationTimeout  = 30 * time.Second
	DefaultPipelineTimeout   = 10 * time.Minute
	DefaultTransitionTimeout = 60 * time.Minute
)

// Config is the complete set of environment-sourced settings for one run
// of schemadbctl: where the declarative input tree lives, how to reach the
// database, the batch-mode switches (spec.md §6.4), and the timeouts and
// worker cap governing the Processor (spec.md §5).
type Config struct {
	// InputDir is the root of the declarative input tree: collections/,
	// dictionary/, dictionary/types/, data/ (spec.md §6.1).
	InputDir string `env:"INPUT_DIR" envDefault:"."`

	// MongoURI and MongoDatabase locate the target database.
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE,required"`

	// VersionCollection names the collection holding CollectionVersionRecord
	// documents (spec.md §3, §4.8). A single collection serves every
	// managed collection's version record.
	VersionCollection string `env:"VERSION_COLLECTION" envDefault:"schemadb_versions"`

	// MaxWorkers caps how many collections the Processor drives concurrently
	// (spec.md §5: "capped at a small bound"). 0 means "one worker per
	// collection, uncapped" -- Processor.ProcessAll treats 0 as unbounded.
	MaxWorkers int `env:"MAX_WORKERS" envDefault:"4"`

	// OperationTimeout, PipelineTimeout, and TransitionTimeout are the three
	// configurable timeouts named in spec.md §5.
	OperationTimeout  time.Duration `env:"OPERATION_TIMEOUT" envDefault:"30s"`
	PipelineTimeout   time.Duration `env:"PIPELINE_TIMEOUT" envDefault:"10m"`
	TransitionTimeout time.Duration `env:"TRANSITION_TIMEOUT" envDefault:"60m"`

	// AutoProcess and ExitAfterProcessing implement the batch-mode contract
	// of spec.md §6.4: when both are true, schemadbctl runs `process`
	// against every collection in InputDir and exits with the batch-mode
	// code instead of waiting for an explicit subcommand.
	AutoProcess         bool `env:"AUTO_PROCESS" envDefault:"false"`
	ExitAfterProcessing bool `env:"EXIT_AFTER_PROCESSING" envDefault:"false"`
}

// Load reads a Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment configuration")
	}
	return cfg, nil
}

// Validate checks a loaded Config for the constraints env.Parse itself
// cannot express (cross-field and range checks), mirroring the teacher's
// config.Validate(cfg) call in server.go.
func Validate(cfg Config) error {
	if cfg.InputDir == "" {
		return errors.New("INPUT_DIR must not be empty")
	}
	if cfg.MongoDatabase == "" {
		return errors.New("MONGO_DATABASE must not be empty")
	}
	if cfg.VersionCollection == "" {
		return errors.New("VERSION_COLLECTION must not be empty")
	}
	if cfg.MaxWorkers < 0 {
		return errors.Errorf("MAX_WORKERS must not be negative, got %d", cfg.MaxWorkers)
	}
	if cfg.OperationTimeout <= 0 {
		return errors.Errorf("OPERATION_TIMEOUT must be positive, got %s", cfg.OperationTimeout)
	}
	if cfg.PipelineTimeout <= 0 {
		return errors.Errorf("PIPELINE_TIMEOUT must be positive, got %s", cfg.PipelineTimeout)
	}
	if cfg.TransitionTimeout <= 0 {
		return errors.Errorf("TRANSITION_TIMEOUT must be positive, got %s", cfg.TransitionTimeout)
	}
	return nil
}
