// Package dbcap is the database capability boundary (spec.md §6.2): the
// narrow set of operations every other package in this repository is
// allowed to perform against the underlying document database. Treating it
// as an interface rather than threading *mongo.Database everywhere keeps
// packages indexmgr, migrate, applier, and versionstore testable against
// dbcap.Mock without a live database, the same shape the teacher used for
// its own entity store (see _examples/block-etre/test/mock).
package dbcap

import "context"

// ValidatorDoc is the installed document validator for one collection:
// the rendered BSON schema, the validation level ("off", "moderate",
// "strict"), and the validation action ("error", "warn").
type ValidatorDoc struct {
	BSONSchema map[string]any
	Level      string
	Action     string
}

// IndexKey is one field of an index's key, in declared order.
type IndexKey struct {
	Field     string
	Direction any // 1, -1, or "text"
}

// IndexSpec is everything needed to create one index.
type IndexSpec struct {
	Name    string
	Key     []IndexKey
	Options map[string]any
}

// IndexInfo is one index as reported by listIndexes.
type IndexInfo struct {
	Name string
	Key  []IndexKey
}

// Capability is the full set of operations this repository ever performs
// against the database (spec.md §6.2). Every operation takes a context and
// returns an error that should be (or wrap) a *schemadb.Error so callers can
// inspect its Kind.
type Capability interface {
	ListCollections(ctx context.Context) ([]string, error)

	GetValidator(ctx context.Context, collection string) (*ValidatorDoc, error)
	SetValidator(ctx context.Context, collection string, bsonSchema map[string]any, level, action string) error
	ClearValidator(ctx context.Context, collection string) error

	ListIndexes(ctx context.Context, collection string) ([]IndexInfo, error)
	CreateIndex(ctx context.Context, collection string, spec IndexSpec) error
	DropIndex(ctx context.Context, collection string, name string) error

	// Aggregate runs pipeline against collection with allowDiskUse=true and
	// majority read/write concern (spec.md §4.7).
	Aggregate(ctx context.Context, collection string, pipeline []map[string]any) error

	FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error)
	UpsertOne(ctx context.Context, collection string, filter, update map[string]any) error
	InsertMany(ctx context.Context, collection string, docs []map[string]any) error

	// CountMatching is a small, deliberate addition beyond spec.md §6.2's
	// literal operation list: the Version Store must distinguish "exactly
	// one CollectionVersionRecord" from "more than one" to honor the
	// corrupt-state handling spec.md §3 describes, which findOne alone
	// cannot do. See DESIGN.md.
	CountMatching(ctx context.Context, collection string, filter map[string]any) (int64, error)
}
