package dbcap

import (
	"context"
	"sync"

	schemadb "github.com/blockgraph/schemadb"
)

// Mock is an in-memory Capability, in the spirit of the teacher's
// test/mock package: a struct of optional *Func fields that override
// specific operations for one test, falling back to a real (if simplistic)
// in-memory implementation when left nil so most tests don't need to stub
// every method.
type Mock struct {
	mu sync.Mutex

	validators map[string]ValidatorDoc
	indexes    map[string][]IndexInfo
	docs       map[string][]map[string]any

	ListCollectionsFunc func(ctx context.Context) ([]string, error)
	CreateIndexFunc     func(ctx context.Context, collection string, spec IndexSpec) error
	DropIndexFunc       func(ctx context.Context, collection string, name string) error
	AggregateFunc       func(ctx context.Context, collection string, pipeline []map[string]any) error
	SetValidatorFunc    func(ctx context.Context, collection string, bsonSchema map[string]any, level, action string) error
	CountMatchingFunc   func(ctx context.Context, collection string, filter map[string]any) (int64, error)
}

// NewMock returns a ready-to-use Mock with every collection starting empty.
func NewMock() *Mock {
	return &Mock{
		validators: make(map[string]ValidatorDoc),
		indexes:    make(map[string][]IndexInfo),
		docs:       make(map[string][]map[string]any),
	}
}

func (m *Mock) ListCollections(ctx context.Context) ([]string, error) {
	if m.ListCollectionsFunc != nil {
		return m.ListCollectionsFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	return names, nil
}

func (m *Mock) GetValidator(ctx context.Context, collection string) (*ValidatorDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.validators[collection]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *Mock) SetValidator(ctx context.Context, collection string, bsonSchema map[string]any, level, action string) error {
	if m.SetValidatorFunc != nil {
		return m.SetValidatorFunc(ctx, collection, bsonSchema, level, action)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validators[collection] = ValidatorDoc{BSONSchema: bsonSchema, Level: level, Action: action}
	return nil
}

func (m *Mock) ClearValidator(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.validators, collection)
	return nil
}

func (m *Mock) ListIndexes(ctx context.Context, collection string) ([]IndexInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]IndexInfo{{Name: "_id_"}}, m.indexes[collection]...)
	return out, nil
}

func (m *Mock) CreateIndex(ctx context.Context, collection string, spec IndexSpec) error {
	if m.CreateIndexFunc != nil {
		return m.CreateIndexFunc(ctx, collection, spec)
	}
	if len(spec.Key) == 0 {
		return schemadb.NewError(schemadb.KindIndexInvalid, collection, "index %s has no keys", spec.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.indexes[collection] {
		if existing.Name == spec.Name {
			return nil // idempotent: already created
		}
	}
	m.indexes[collection] = append(m.indexes[collection], IndexInfo{Name: spec.Name, Key: spec.Key})
	return nil
}

func (m *Mock) DropIndex(ctx context.Context, collection string, name string) error {
	if m.DropIndexFunc != nil {
		return m.DropIndexFunc(ctx, collection, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.indexes[collection][:0]
	for _, existing := range m.indexes[collection] {
		if existing.Name != name {
			kept = append(kept, existing)
		}
	}
	m.indexes[collection] = kept
	return nil
}

func (m *Mock) Aggregate(ctx context.Context, collection string, pipeline []map[string]any) error {
	if m.AggregateFunc != nil {
		return m.AggregateFunc(ctx, collection, pipeline)
	}
	return nil
}

func (m *Mock) FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs[collection] {
		if matches(doc, filter) {
			return doc, nil
		}
	}
	return nil, nil
}

func (m *Mock) UpsertOne(ctx context.Context, collection string, filter, update map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, doc := range m.docs[collection] {
		if matches(doc, filter) {
			merged := make(map[string]any, len(doc)+len(update))
			for k, v := range doc {
				merged[k] = v
			}
			for k, v := range update {
				merged[k] = v
			}
			m.docs[collection][i] = merged
			return nil
		}
	}
	merged := make(map[string]any, len(filter)+len(update))
	for k, v := range filter {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	m.docs[collection] = append(m.docs[collection], merged)
	return nil
}

func (m *Mock) CountMatching(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	if m.CountMatchingFunc != nil {
		return m.CountMatchingFunc(ctx, collection, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, doc := range m.docs[collection] {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (m *Mock) InsertMany(ctx context.Context, collection string, docs []map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[collection] = append(m.docs[collection], docs...)
	return nil
}

func matches(doc, filter map[string]any) bool {
	for k, v := range filter {
		if doc[k] != v {
			return false
		}
	}
	return true
}
