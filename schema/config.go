// Package schema implements the Schema Loader & Resolver: the declarative
// per-collection, per-version configuration data model (CollectionConfig /
// VersionSpec / IndexSpec) and the resolver that expands a loaded Node tree
// (package typedict) into a fully-expanded (JSON-Schema, BSON-schema) pair.
//
// This generalizes the teacher's flat schema.Config / schema.EntitySchema /
// schema.Schema / schema.Field / schema.Index -- one flat field list and
// index set per entity -- into a versioned, recursive dialect: many
// CollectionConfig.Versions instead of one Schema, and a recursive
// typedict.Node tree instead of a flat []Field. Index reconciliation and
// validator application, the other half of the teacher's schema package,
// moved out into packages indexmgr and applier respectively.
package schema

import (
	"fmt"
	"regexp"

	"github.com/blockgraph/schemadb/enumreg"
	"github.com/blockgraph/schemadb/typedict"
	"github.com/blockgraph/schemadb/version"
)

var nameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{2,64}$`)

// CollectionConfig is one collections/<name>.yaml file: a slugged
// collection name and its non-empty, strictly-increasing version history.
type CollectionConfig struct {
	Name     string        `yaml:"name" json:"name"`
	Versions []VersionSpec `yaml:"versions" json:"versions"`
}

// ValidName reports whether Name matches the required slug pattern
// (`^[A-Za-z0-9_-]{2,64}$`).
func (c CollectionConfig) ValidName() bool {
	return nameRE.MatchString(c.Name)
}

// VersionSpec is one declared target version of a collection.
type VersionSpec struct {
	Version      version.Number `yaml:"version" json:"version"`
	AddIndexes   []IndexSpec    `yaml:"add_indexes,omitempty" json:"add_indexes,omitempty"`
	DropIndexes  []string       `yaml:"drop_indexes,omitempty" json:"drop_indexes,omitempty"`
	Aggregations []Pipeline     `yaml:"aggregations,omitempty" json:"aggregations,omitempty"`
	TestData     string         `yaml:"test_data,omitempty" json:"test_data,omitempty"`

	// ValidationLevel overrides the default "moderate" validator posture
	// installed when the validator is (re)applied. Accepted values: "",
	// "moderate", "strict".
	ValidationLevel string `yaml:"validation_level,omitempty" json:"validation_level,omitempty"`

	// ValidationAction overrides the default "error" validator action.
	// Resolved open question: the default stays "error"; this field is an
	// explicit, opt-in per-version override. See DESIGN.md.
	ValidationAction string `yaml:"validation_action,omitempty" json:"validation_action,omitempty"`

	// Schema is the root schema node for this version, loaded separately
	// from dictionary/<name>.<M>.<m>.<p>.yaml and attached by the loader;
	// it is not part of the collections/<name>.yaml document itself.
	Schema *typedict.Node `yaml:"-" json:"-"`
}

// Stage is one opaque aggregation pipeline stage, passed through to the
// database's aggregate command untouched.
type Stage = map[string]any

// Pipeline is an ordered list of aggregation stages; its final stage is
// expected, but not required, to be a terminal write stage (e.g. $merge or
// $out).
type Pipeline = []Stage

// IndexSpec is one index declaration: a name unique within the collection,
// an ordered key (field -> direction or "text"), and an opaque options bag
// passed straight to the database capability's createIndex.
type IndexSpec struct {
	Name    string         `yaml:"name" json:"name"`
	Key     []IndexKey     `yaml:"key" json:"key"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// IndexKey is one field of an IndexSpec's key, authored as an ordered list
// entry (not a map) for the same reason typedict.Property is: MongoDB index
// key order is semantically significant, and a plain slice gives us that
// for free from a struct-tag decode.
type IndexKey struct {
	Field     string `yaml:"field" json:"field"`
	Direction any    `yaml:"direction" json:"direction"` // 1, -1, or "text"
}

func (i IndexSpec) String() string {
	return fmt.Sprintf("IndexSpec{Name: %s, Key: %v}", i.Name, i.Key)
}

// Universe is the immutable, fully-loaded in-memory configuration graph for
// one processing run: every collection, the shared type dictionary, the
// enumerator registry, the set of $ref-resolvable dictionary files, and the
// set of test-data file names actually present on disk. It is built once by
// package fsloader and handed to every worker by reference; nothing in this
// repository mutates a Universe after it is built.
type Universe struct {
	Collections map[string]CollectionConfig
	Dictionary  *typedict.Dictionary
	Enumerators *enumreg.Registry
	Refs        map[string]typedict.Node
	TestData    map[string]bool
}
