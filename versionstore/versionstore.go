// Package versionstore is the Version Store (spec.md §4.8): the
// per-collection current-version marker kept in a dedicated collection.
// Absence or a corrupt multi-record state both read back as the zero
// version (spec.md §3 "CollectionVersionRecord ... absence ≡ 0.0.0.0; more
// than one is treated as corrupt and forces 0.0.0.0 with a warning").
package versionstore

import (
	"context"
	"log"

	"github.com/blockgraph/schemadb/dbcap"
	"github.com/blockgraph/schemadb/version"
)

const fieldCollectionName = "collection_name"
const fieldVersion = "current_version"

// Store reads and writes CollectionVersionRecord documents in one
// configured collection.
type Store struct {
	cap        dbcap.Capability
	collection string
}

// New builds a Store backed by cap, storing records in the given collection
// name (config.Config.VersionCollection).
func New(cap dbcap.Capability, collection string) *Store {
	return &Store{cap: cap, collection: collection}
}

// Read returns the current version for name, or version.Zero if no record
// exists or more than one does.
func (s *Store) Read(ctx context.Context, name string) (version.Number, error) {
	filter := map[string]any{fieldCollectionName: name}

	count, err := s.cap.CountMatching(ctx, s.collection, filter)
	if err != nil {
		return version.Zero, err
	}
	if count == 0 {
		return version.Zero, nil
	}
	if count > 1 {
		log.Printf("WARN: %d CollectionVersionRecord documents found for %s; treating as corrupt, forcing 0.0.0.0", count, name)
		return version.Zero, nil
	}

	doc, err := s.cap.FindOne(ctx, s.collection, filter)
	if err != nil {
		return version.Zero, err
	}
	if doc == nil {
		return version.Zero, nil
	}
	raw, _ := doc[fieldVersion].(string)
	return version.Parse(raw)
}

// Write upserts the current version for name, keyed on collection_name.
// Writes occur only at the final step of a successful transition
// (spec.md §4.8).
func (s *Store) Write(ctx context.Context, name string, v version.Number) error {
	filter := map[string]any{fieldCollectionName: name}
	update := map[string]any{fieldCollectionName: name, fieldVersion: v.String()}
	return s.cap.UpsertOne(ctx, s.collection, filter, update)
}
