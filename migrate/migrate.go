// Package migrate is the Migration Manager: it runs a collection version's
// declared aggregation pipelines against a dbcap.Capability, in declared
// order, aborting on the first pipeline that fails. It follows the
// teacher's log.Printf("INFO: ...")/"WARN: ..." convention (see
// schema/legacy_mongo_schema.go) rather than introducing a structured
// logging library the rest of the repository does not use.
package migrate

import (
	"context"
	"log"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/dbcap"
	"github.com/blockgraph/schemadb/schema"
)

// Manager runs aggregation pipelines for one collection version.
type Manager struct {
	cap dbcap.Capability
}

// New builds a Manager over the given database capability.
func New(cap dbcap.Capability) *Manager {
	return &Manager{cap: cap}
}

// Run executes pipelines against collection in declared order with
// allowDiskUse=true and majority read/write concern (enforced by the
// Capability implementation). A pipeline whose final stage is not a
// recognized terminal write stage ($merge or $out) is not an error -- the
// engine cannot know a pipeline's intent -- but is logged at WARN, since it
// is very likely an authoring mistake. The first pipeline that fails to run
// aborts the whole transition with MigrationFailed carrying its zero-based
// index.
func (m *Manager) Run(ctx context.Context, collection string, pipelines []schema.Pipeline) error {
	for i, pipeline := range pipelines {
		if !hasTerminalWriteStage(pipeline) {
			log.Printf("WARN: migration pipeline %d for %s has no terminal $merge/$out stage; running it anyway", i, collection)
		}

		log.Printf("INFO: running migration pipeline %d for %s (%d stages)", i, collection, len(pipeline))
		if err := m.cap.Aggregate(ctx, collection, pipeline); err != nil {
			return schemadb.NewError(schemadb.KindMigrationFailed, collection,
				"pipeline %d failed: %v", i, err)
		}
	}
	return nil
}

func hasTerminalWriteStage(pipeline schema.Pipeline) bool {
	if len(pipeline) == 0 {
		return false
	}
	last := pipeline[len(pipeline)-1]
	_, hasMerge := last["$merge"]
	_, hasOut := last["$out"]
	return hasMerge || hasOut
}
