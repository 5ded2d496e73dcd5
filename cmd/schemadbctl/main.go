// Command schemadbctl is the batch-mode entrypoint for the schema, index,
// and migration engine (spec.md §6.4). It replaces the teacher's HTTP
// service lifecycle (server.Boot/server.Run) with a load-config ->
// connect -> do-the-work -> report flow: there is no HTTP surface here,
// only three subcommands and the AUTO_PROCESS/EXIT_AFTER_PROCESSING batch
// contract.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/blockgraph/schemadb/config"
	"github.com/blockgraph/schemadb/dbcap"
	"github.com/blockgraph/schemadb/fsloader"
	"github.com/blockgraph/schemadb/process"
	"github.com/blockgraph/schemadb/render"
	"github.com/blockgraph/schemadb/schema"
	"github.com/blockgraph/schemadb/validate"
)

// Retry policy for the initial connection, mirroring the teacher's
// connectToDatasource (server/server.go): keep pinging until the database
// answers instead of failing on the first unavailable attempt, since a
// batch run is commonly started at the same time as the database container.
const (
	maxConnectAttempts    = 10
	connectRetryBaseDelay = 2 * time.Second
	connectRetryJitterMS  = 2000
)

// Exit codes from spec.md §6.4.
const (
	exitOK               = 0
	exitProcessingFailed = 1
	exitValidationFailed = 2
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(exitProcessingFailed)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invalid config: %v\n", err)
		os.Exit(exitProcessingFailed)
	}

	if cfg.AutoProcess && cfg.ExitAfterProcessing {
		os.Exit(runBatch(cfg))
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(exitProcessingFailed)
	}
}

// runBatch implements the AUTO_PROCESS=true, EXIT_AFTER_PROCESSING=true
// contract: validate, then process every collection, then exit with the
// batch-mode code instead of waiting for an explicit subcommand.
func runBatch(cfg config.Config) int {
	universe, loadErrs := loadUniverse(cfg.InputDir)
	if code := reportValidation(universe, loadErrs); code != exitOK {
		return code
	}
	return runProcess(cfg, universe)
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "schemadbctl",
		Short:         "Declarative MongoDB schema, index, and migration manager",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newValidateCmd(cfg), newProcessCmd(cfg), newRenderCmd(cfg))
	return root
}

func newValidateCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the pre-processing validation pass over the input tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			universe, loadErrs := loadUniverse(cfg.InputDir)
			code := reportValidation(universe, loadErrs)
			if code != exitOK {
				os.Exit(code)
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func newProcessCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Bring every collection up to its declared latest version",
		RunE: func(cmd *cobra.Command, args []string) error {
			universe, loadErrs := loadUniverse(cfg.InputDir)
			if code := reportValidation(universe, loadErrs); code != exitOK {
				os.Exit(code)
			}
			os.Exit(runProcess(cfg, universe))
			return nil
		},
	}
}

func newRenderCmd(cfg config.Config) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "render <collection> <version>",
		Short: "Render a collection version's schema to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cfg, args[0], args[1], format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json_schema", "one of json_schema, bson_schema, openapi")
	return cmd
}

func loadUniverse(inputDir string) (*schema.Universe, []error) {
	return fsloader.New().Load(inputDir)
}

// reportValidation prints every load and validation error and returns the
// process exit code that applies: exitValidationFailed if any error was
// found, exitOK otherwise.
func reportValidation(universe *schema.Universe, loadErrs []error) int {
	errs := append(append([]error{}, loadErrs...), validate.Run(universe)...)
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "VALIDATION: %v\n", e)
	}
	if len(errs) > 0 {
		return exitValidationFailed
	}
	return exitOK
}

func runProcess(cfg config.Config, universe *schema.Universe) int {
	ctx := context.Background()

	db, client, err := connectMongo(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitProcessingFailed
	}
	defer func() {
		if disconnectErr := client.Disconnect(ctx); disconnectErr != nil {
			log.Printf("WARN: error disconnecting from MongoDB: %v", disconnectErr)
		}
	}()

	cap := dbcap.NewMongo(db)
	proc := process.New(cap, universe, cfg.VersionCollection, cfg.InputDir, true,
		cfg.OperationTimeout, cfg.PipelineTimeout, cfg.TransitionTimeout)

	reports := proc.ProcessAll(ctx, cfg.MaxWorkers)
	failed := false
	for _, r := range reports {
		status := "ok"
		if r.Failed {
			status = "failed"
			failed = true
		}
		log.Printf("INFO: collection %s: %s -> %s (%s)", r.Collection, r.StartVersion, r.FinalVersion, status)
	}
	if failed {
		return exitProcessingFailed
	}
	return exitOK
}

func runRender(cfg config.Config, collection, v string, format string) error {
	universe, loadErrs := loadUniverse(cfg.InputDir)
	if len(loadErrs) > 0 {
		return errors.Errorf("input tree failed to load: %v", loadErrs[0])
	}

	cc, ok := universe.Collections[collection]
	if !ok {
		return errors.Errorf("no such collection %q", collection)
	}
	var target *schema.VersionSpec
	for i := range cc.Versions {
		if cc.Versions[i].Version.String() == v {
			target = &cc.Versions[i]
			break
		}
	}
	if target == nil {
		return errors.Errorf("collection %q has no declared version %q", collection, v)
	}

	resolver := schema.NewResolver(universe.Dictionary, universe.Refs, universe.Enumerators)
	jsonSchema, bsonSchema, errs := resolver.Resolve(collection, target.Version.Enumerator, target.Schema)
	if len(errs) > 0 {
		return errors.Errorf("schema did not resolve: %v", errs[0])
	}

	var out any
	switch format {
	case "json_schema":
		rendered, err := render.RenderJSONSchema(collection, v, jsonSchema)
		if err != nil {
			return err
		}
		out = rendered
	case "bson_schema":
		out = render.RenderBSONSchema(bsonSchema)
	case "openapi":
		doc, err := render.RenderOpenAPI(collection, v, jsonSchema)
		if err != nil {
			return err
		}
		out = doc
	default:
		return errors.Errorf("unknown render format %q", format)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// connectMongo pings until the database answers or maxConnectAttempts is
// exhausted, logging only the first failure the way connectToDatasource
// does ("Will retry every 500ms until successful"), not one line per try.
func connectMongo(ctx context.Context, cfg config.Config) (*mongo.Database, *mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to MongoDB")
	}

	var pingErr error
	for attempt := 0; attempt < maxConnectAttempts; attempt++ {
		pingErr = client.Ping(ctx, nil)
		if pingErr == nil {
			return client.Database(cfg.MongoDatabase), client, nil
		}
		if attempt == 0 {
			log.Printf("WARN: cannot reach MongoDB yet (%s); retrying up to %d more time(s)", pingErr, maxConnectAttempts-1)
		}
		jitter := time.Duration(rand.Intn(connectRetryJitterMS)) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, nil, errors.Wrap(ctx.Err(), "ping MongoDB")
		case <-time.After(connectRetryBaseDelay + jitter):
		}
	}
	return nil, nil, errors.Wrap(pingErr, "ping MongoDB: giving up after retries")
}
