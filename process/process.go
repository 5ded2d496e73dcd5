// Package process implements the Configuration Manager / Processor
// (spec.md §4.9): the orchestrator that drives one collection, version by
// version, through the seven-state machine (drop validator, drop indexes,
// migrate, add indexes, add validator, write version, optionally load test
// data), and fans that work out across collections.
//
// The retry-on-DatabaseUnavailable shape below generalizes the teacher's
// runSchemaDDL/connectToDatasource retry loop (server/server.go): bounded
// attempts, a short jittered sleep between them, because the teacher's own
// comment there notes collMod/index updates are safe to retry (idempotent,
// fast metadata-only operations) -- exactly the property spec.md §4.9
// "Idempotence" relies on for every step in this state machine.
package process

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/applier"
	"github.com/blockgraph/schemadb/dbcap"
	"github.com/blockgraph/schemadb/indexmgr"
	"github.com/blockgraph/schemadb/migrate"
	"github.com/blockgraph/schemadb/schema"
	"github.com/blockgraph/schemadb/version"
	"github.com/blockgraph/schemadb/versionstore"
)

// Step names the seven-state machine's phases, in order.
type Step string

const (
	StepDropValidator  Step = "STEP_DROP_VALIDATOR"
	StepDropIndexes    Step = "STEP_DROP_INDEXES"
	StepMigrate        Step = "STEP_MIGRATE"
	StepAddIndexes     Step = "STEP_ADD_INDEXES"
	StepAddValidator   Step = "STEP_ADD_VALIDATOR"
	StepWriteVersion   Step = "STEP_WRITE_VERSION"
	StepLoadTestData   Step = "STEP_LOAD_TEST_DATA"
	StepDoneOneVersion Step = "DONE_ONE_VERSION"
)

// Operation records one completed or failed step, in the order it ran.
type Operation struct {
	Collection string
	Version    version.Number
	Step       Step
	Err        error
}

// Report is the outcome of processing one collection: every version it
// reached, in order, and the operation log behind that outcome.
type Report struct {
	Collection   string
	StartVersion version.Number
	FinalVersion version.Number
	Operations   []Operation
	Failed       bool
}

// Retry policy for a single step, applied only to DatabaseUnavailable
// failures (spec.md §7: the only retriable per-step kind).
const (
	maxStepAttempts  = 5
	retryBaseDelay   = 2 * time.Second
	retryJitterRange = 2000 // milliseconds
)

// Processor runs the Processor state machine against a database capability.
type Processor struct {
	cap               dbcap.Capability
	universe          *schema.Universe
	resolver          *schema.Resolver
	inputDir          string
	loadTestData      bool
	operationTimeout  time.Duration
	pipelineTimeout   time.Duration
	transitionTimeout time.Duration
	versions          *versionstore.Store
	indexes           *indexmgr.Manager
	migrations        *migrate.Manager
	validators        *applier.Applier
}

// New builds a Processor bound to universe's type dictionary, $ref targets,
// and enumerator registry, so StepAddValidator can re-resolve a version's
// BSON schema the same way the Validation Pass did. inputDir is the root of
// the declarative input tree, used only to resolve test-data file paths at
// StepLoadTestData; loadTestData mirrors "the service flag" spec.md
// §4.9(g) gates on.
func New(cap dbcap.Capability, universe *schema.Universe, versionCollection, inputDir string, loadTestData bool, operationTimeout, pipelineTimeout, transitionTimeout time.Duration) *Processor {
	return &Processor{
		cap:               cap,
		universe:          universe,
		resolver:          schema.NewResolver(universe.Dictionary, universe.Refs, universe.Enumerators),
		inputDir:          inputDir,
		loadTestData:      loadTestData,
		operationTimeout:  operationTimeout,
		pipelineTimeout:   pipelineTimeout,
		transitionTimeout: transitionTimeout,
		versions:          versionstore.New(cap, versionCollection),
		indexes:           indexmgr.New(cap),
		migrations:        migrate.New(cap),
		validators:        applier.New(cap),
	}
}

// ProcessCollection drives cc through every declared version strictly
// greater than its currently-persisted version, in ascending order,
// aborting the collection on the first failing step. The prior successful
// version remains the persisted version of record (spec.md §4.9.3).
func (p *Processor) ProcessCollection(ctx context.Context, cc schema.CollectionConfig) Report {
	report := Report{Collection: cc.Name}

	vCur, err := p.versions.Read(ctx, cc.Name)
	if err != nil {
		report.Failed = true
		report.Operations = append(report.Operations, Operation{Collection: cc.Name, Step: StepDropValidator, Err: err})
		return report
	}
	report.StartVersion = vCur
	report.FinalVersion = vCur

	pending := make([]schema.VersionSpec, 0, len(cc.Versions))
	for _, v := range cc.Versions {
		if v.Version.Compare(vCur) > 0 {
			pending = append(pending, v)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version.Less(pending[j].Version) })

	for _, v := range pending {
		if err := ctx.Err(); err != nil {
			report.Failed = true
			return report
		}

		transitionCtx, cancel := context.WithTimeout(ctx, p.transitionTimeout)
		ok := p.runTransition(transitionCtx, cc.Name, v, &report)
		cancel()
		if !ok {
			report.Failed = true
			return report
		}
		report.FinalVersion = v.Version
	}
	return report
}

func (p *Processor) runTransition(ctx context.Context, collection string, v schema.VersionSpec, report *Report) bool {
	steps := []struct {
		step Step
		run  func(context.Context) error
	}{
		{StepDropValidator, func(c context.Context) error { return p.validators.DropValidator(c, collection) }},
		{StepDropIndexes, func(c context.Context) error { return p.indexes.ApplyDrops(c, collection, v.DropIndexes) }},
		{StepMigrate, func(c context.Context) error { return p.runMigrate(c, collection, v.Aggregations) }},
		{StepAddIndexes, func(c context.Context) error { return p.indexes.ApplyAdds(c, collection, v.AddIndexes) }},
		{StepAddValidator, func(c context.Context) error { return p.addValidator(c, collection, v) }},
		{StepWriteVersion, func(c context.Context) error { return p.versions.Write(c, collection, v.Version) }},
	}
	if p.loadTestData && v.TestData != "" {
		steps = append(steps, struct {
			step Step
			run  func(context.Context) error
		}{StepLoadTestData, func(c context.Context) error { return p.loadTestDataFile(c, collection, v.TestData) }})
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			report.Operations = append(report.Operations, Operation{Collection: collection, Version: v.Version, Step: s.step, Err: err})
			return false
		}
		// The migrate step is bounded by pipelineTimeout inside runMigrate;
		// wrapping it in operationTimeout as well would cap it at that value.
		stepTimeout := p.operationTimeout
		if s.step == StepMigrate {
			stepTimeout = p.transitionTimeout
		}
		stepCtx, cancel := context.WithTimeout(ctx, stepTimeout)
		err := p.runStepWithRetry(stepCtx, s.run)
		cancel()
		report.Operations = append(report.Operations, Operation{Collection: collection, Version: v.Version, Step: s.step, Err: err})
		if err != nil {
			log.Printf("ERROR: collection %s version %s failed at %s: %s", collection, v.Version, s.step, err)
			return false
		}
	}
	report.Operations = append(report.Operations, Operation{Collection: collection, Version: v.Version, Step: StepDoneOneVersion})
	return true
}

// runStepWithRetry retries a step only when it fails with
// schemadb.KindDatabaseUnavailable, the one retriable kind (spec.md §7),
// bounded at maxStepAttempts with a jittered sleep between tries.
func (p *Processor) runStepWithRetry(ctx context.Context, run func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxStepAttempts; attempt++ {
		err = run(ctx)
		if err == nil {
			return nil
		}
		serr, ok := err.(*schemadb.Error)
		if !ok || !serr.Kind.Retriable() {
			return err
		}
		if attempt == maxStepAttempts-1 {
			break
		}
		jitter := time.Duration(rand.Intn(retryJitterRange)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBaseDelay + jitter):
		}
	}
	return err
}

func (p *Processor) runMigrate(ctx context.Context, collection string, pipelines []schema.Pipeline) error {
	pipelineCtx, cancel := context.WithTimeout(ctx, p.pipelineTimeout)
	defer cancel()
	return p.migrations.Run(pipelineCtx, collection, pipelines)
}

func (p *Processor) addValidator(ctx context.Context, collection string, v schema.VersionSpec) error {
	_, bsonSchema, errs := p.resolver.Resolve(collection, v.Version.Enumerator, v.Schema)
	if len(errs) > 0 {
		return schemadb.NewError(schemadb.KindValidatorRejected, collection, "schema for version %s did not resolve: %v", v.Version, errs[0])
	}
	return p.validators.AddValidator(ctx, collection, bsonSchema, v.ValidationLevel, v.ValidationAction)
}

// loadTestDataFile reads data/<file> and inserts its documents via
// InsertMany (spec.md §6.2, "used only by Version Store and test-data
// loader"); an empty array is a legal, no-op test-data file.
func (p *Processor) loadTestDataFile(ctx context.Context, collection, file string) error {
	raw, err := os.ReadFile(filepath.Join(p.inputDir, "data", file))
	if err != nil {
		return schemadb.NewError(schemadb.KindMalformedFile, file, "cannot read test data file: %v", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return schemadb.NewError(schemadb.KindMalformedFile, file, "cannot parse test data file: %v", err)
	}
	return p.cap.InsertMany(ctx, collection, docs)
}

// ProcessAll fans out one worker per collection in the Processor's bound
// universe, capped at maxWorkers (0 means unbounded, one worker per
// collection), and returns every collection's Report. Collections never
// share a worker slot, so one collection failing never blocks or cancels
// another (spec.md §4.9 "A failed collection does not prevent others from
// running").
func (p *Processor) ProcessAll(ctx context.Context, maxWorkers int) []Report {
	names := make([]string, 0, len(p.universe.Collections))
	for name := range p.universe.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	if maxWorkers <= 0 || maxWorkers > len(names) {
		maxWorkers = len(names)
	}
	if maxWorkers == 0 {
		return nil
	}

	reports := make([]Report, len(names))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			reports[i] = p.ProcessCollection(ctx, p.universe.Collections[name])
		}(i, name)
	}
	wg.Wait()
	return reports
}
