// Package applier is the Schema Applier (spec.md §4.9 steps a and e): it
// drops and installs the document validator on a collection. It generalizes
// the teacher's disableMongoJSONValidation/updateMongoJSONValidation
// (schema/legacy_mongo_schema.go), which always installed "moderate", into a
// per-version validationLevel (moderate default, "strict" opt-in) with a
// fixed validationAction=error default that a version may explicitly
// override (see DESIGN.md).
package applier

import (
	"context"

	"github.com/blockgraph/schemadb/dbcap"
)

const (
	defaultValidationLevel  = "moderate"
	defaultValidationAction = "error"
)

// Applier installs and removes document validators.
type Applier struct {
	cap dbcap.Capability
}

// New builds an Applier over the given database capability.
func New(cap dbcap.Capability) *Applier {
	return &Applier{cap: cap}
}

// DropValidator removes any existing validator on collection. Non-existence
// is not an error (spec.md §4.9 step a).
func (a *Applier) DropValidator(ctx context.Context, collection string) error {
	return a.cap.ClearValidator(ctx, collection)
}

// AddValidator installs bsonSchema as collection's document validator
// (spec.md §4.9 step e). An empty level or action falls back to the
// default ("moderate" / "error").
func (a *Applier) AddValidator(ctx context.Context, collection string, bsonSchema map[string]any, level, action string) error {
	if level == "" {
		level = defaultValidationLevel
	}
	if action == "" {
		action = defaultValidationAction
	}
	return a.cap.SetValidator(ctx, collection, bsonSchema, level, action)
}
