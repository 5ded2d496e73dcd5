// Package indexmgr is the Index Manager: it applies a collection version's
// declared index changes against a dbcap.Capability. It generalizes the
// teacher's schema/mongo_schema.go functions (createIndex, existingIndexes,
// indexName, toBSONIndex) from etre's flat []string keys + parallel []int
// directions into the ordered key/direction pairs carried by
// schema.IndexSpec, and turns "index already exists" from a build error
// into the idempotent re-apply this repository's per-version state machine
// requires.
package indexmgr

import (
	"context"
	"fmt"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/dbcap"
	"github.com/blockgraph/schemadb/schema"
)

// Manager applies index adds and drops for one collection.
type Manager struct {
	cap dbcap.Capability
}

// New builds a Manager over the given database capability.
func New(cap dbcap.Capability) *Manager {
	return &Manager{cap: cap}
}

// CreateIndex creates spec on collection, probing first for an existing
// index with the same name (spec.md §4.9 "Idempotence"). If one exists with
// an identical key it is left alone and CreateIndex returns nil; if its key
// differs, IndexConflict is returned rather than attempting the create.
func (m *Manager) CreateIndex(ctx context.Context, collection string, spec schema.IndexSpec) error {
	if spec.Name == "" {
		return schemadb.NewError(schemadb.KindIndexInvalid, collection, "index has no name")
	}
	if len(spec.Key) == 0 {
		return schemadb.NewError(schemadb.KindIndexInvalid, collection, "index %s has no key fields", spec.Name)
	}

	existing, err := m.cap.ListIndexes(ctx, collection)
	if err != nil {
		return err
	}
	for _, idx := range existing {
		if idx.Name != spec.Name {
			continue
		}
		if sameKey(idx.Key, spec.Key) {
			return nil
		}
		return schemadb.NewError(schemadb.KindIndexConflict, collection,
			"index %s already exists with a different key (%v, wanted %v)", spec.Name, idx.Key, spec.Key)
	}

	return m.cap.CreateIndex(ctx, collection, toCapSpec(spec))
}

// DropIndex removes the named index; absent is treated as success
// (spec.md §4.6 "succeeds if absent (idempotent)").
func (m *Manager) DropIndex(ctx context.Context, collection string, name string) error {
	return m.cap.DropIndex(ctx, collection, name)
}

// ApplyAdds creates every index in specs, in declared order, aborting on the
// first failure.
func (m *Manager) ApplyAdds(ctx context.Context, collection string, specs []schema.IndexSpec) error {
	for _, spec := range specs {
		if err := m.CreateIndex(ctx, collection, spec); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDrops drops every named index, in declared order, aborting on the
// first failure other than "not found".
func (m *Manager) ApplyDrops(ctx context.Context, collection string, names []string) error {
	for _, name := range names {
		if err := m.DropIndex(ctx, collection, name); err != nil {
			return err
		}
	}
	return nil
}

func sameKey(existing []dbcap.IndexKey, wanted []schema.IndexKey) bool {
	if len(existing) != len(wanted) {
		return false
	}
	for i, w := range wanted {
		if existing[i].Field != w.Field || fmt.Sprint(existing[i].Direction) != fmt.Sprint(w.Direction) {
			return false
		}
	}
	return true
}

func toCapSpec(spec schema.IndexSpec) dbcap.IndexSpec {
	out := dbcap.IndexSpec{Name: spec.Name, Options: spec.Options}
	for _, k := range spec.Key {
		out.Key = append(out.Key, dbcap.IndexKey{Field: k.Field, Direction: k.Direction})
	}
	return out
}
