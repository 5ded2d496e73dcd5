package dbcap

import (
	"context"
	"log"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	schemadb "github.com/blockgraph/schemadb"
)

// Mongo is the mongo-driver/v2-backed Capability, generalizing the teacher's
// schema/mongo_schema.go functions (createIndex, existingIndexes, indexName,
// toBSONIndex, disableMongoJSONValidation, updateMongoJSONValidation) from
// etre's flat Index/Field model onto the opaque IndexSpec/ValidatorDoc
// shapes this repository's higher layers deal in.
type Mongo struct {
	db *mongo.Database
}

// NewMongo wraps an already-connected *mongo.Database.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) ListCollections(ctx context.Context) ([]string, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, wrapUnavailable(err, "list collections")
	}
	return names, nil
}

func (m *Mongo) GetValidator(ctx context.Context, collection string) (*ValidatorDoc, error) {
	cursor, err := m.db.ListCollections(ctx, bson.D{{Key: "name", Value: collection}})
	if err != nil {
		return nil, wrapUnavailable(err, "list collections for validator lookup")
	}
	defer cursor.Close(ctx)

	var doc bson.M
	found := false
	for cursor.Next(ctx) {
		if err := cursor.Decode(&doc); err != nil {
			return nil, wrapUnavailable(err, "decode collection metadata")
		}
		found = true
		break
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapUnavailable(err, "iterate collection metadata")
	}
	if !found {
		return nil, nil
	}

	opts, _ := doc["options"].(bson.M)
	if opts == nil {
		return nil, nil
	}
	validator, _ := opts["validator"].(bson.M)
	if validator == nil {
		return nil, nil
	}
	jsonSchema, _ := validator["$jsonSchema"].(bson.M)

	level, _ := opts["validationLevel"].(string)
	action, _ := opts["validationAction"].(string)
	return &ValidatorDoc{BSONSchema: map[string]any(jsonSchema), Level: level, Action: action}, nil
}

func (m *Mongo) SetValidator(ctx context.Context, collection string, bsonSchema map[string]any, level, action string) error {
	cmd := bson.D{
		{Key: "collMod", Value: collection},
		{Key: "validator", Value: bson.D{{Key: "$jsonSchema", Value: bson.M(bsonSchema)}}},
		{Key: "validationLevel", Value: level},
		{Key: "validationAction", Value: action},
	}
	if err := m.db.RunCommand(ctx, cmd).Err(); err != nil {
		return wrapUnavailable(err, "set validator for %s", collection)
	}
	return nil
}

func (m *Mongo) ClearValidator(ctx context.Context, collection string) error {
	cmd := bson.D{
		{Key: "collMod", Value: collection},
		{Key: "validator", Value: bson.D{}},
		{Key: "validationLevel", Value: "off"},
	}
	if err := m.db.RunCommand(ctx, cmd).Err(); err != nil {
		return wrapUnavailable(err, "clear validator for %s", collection)
	}
	return nil
}

func (m *Mongo) ListIndexes(ctx context.Context, collection string) ([]IndexInfo, error) {
	coll := m.db.Collection(collection)
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, wrapUnavailable(err, "list indexes for %s", collection)
	}
	defer cursor.Close(ctx)

	var out []IndexInfo
	for cursor.Next(ctx) {
		var raw struct {
			Name string `bson:"name"`
			Key  bson.D `bson:"key"`
		}
		if err := cursor.Decode(&raw); err != nil {
			return nil, wrapUnavailable(err, "decode index for %s", collection)
		}
		info := IndexInfo{Name: raw.Name}
		for _, e := range raw.Key {
			info.Key = append(info.Key, IndexKey{Field: e.Key, Direction: e.Value})
		}
		out = append(out, info)
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapUnavailable(err, "iterate indexes for %s", collection)
	}
	return out, nil
}

func (m *Mongo) CreateIndex(ctx context.Context, collection string, spec IndexSpec) error {
	if len(spec.Key) == 0 {
		return schemadb.NewError(schemadb.KindIndexInvalid, collection, "index %s has no keys", spec.Name)
	}

	keyDoc := bson.D{}
	for _, k := range spec.Key {
		keyDoc = append(keyDoc, bson.E{Key: k.Field, Value: k.Direction})
	}

	idxOpts := options.Index().SetName(spec.Name)
	if unique, ok := spec.Options["unique"].(bool); ok && unique {
		idxOpts.SetUnique(true)
	}
	if sparse, ok := spec.Options["sparse"].(bool); ok && sparse {
		idxOpts.SetSparse(true)
	}

	coll := m.db.Collection(collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keyDoc, Options: idxOpts})
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "already exists with a different name") || strings.Contains(err.Error(), "Index build failed") {
		return schemadb.NewError(schemadb.KindIndexConflict, collection, "index %s conflicts with an existing index: %v", spec.Name, err)
	}
	return wrapUnavailable(err, "create index %s on %s", spec.Name, collection)
}

func (m *Mongo) DropIndex(ctx context.Context, collection string, name string) error {
	coll := m.db.Collection(collection)
	_, err := coll.Indexes().DropOne(ctx, name)
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "index not found") {
		log.Printf("INFO: index %s on %s not found; it may have been dropped by another process", name, collection)
		return nil
	}
	return wrapUnavailable(err, "drop index %s on %s", name, collection)
}

func (m *Mongo) Aggregate(ctx context.Context, collection string, pipeline []map[string]any) error {
	stages := make(mongo.Pipeline, 0, len(pipeline))
	for _, stage := range pipeline {
		d := bson.D{}
		for k, v := range stage {
			d = append(d, bson.E{Key: k, Value: v})
		}
		stages = append(stages, d)
	}

	rc := readconcern.Majority()
	wc := writeconcern.Majority()
	coll := m.db.Collection(collection, options.Collection().SetReadConcern(rc).SetWriteConcern(wc))

	cursor, err := coll.Aggregate(ctx, stages, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return schemadb.NewError(schemadb.KindMigrationFailed, collection, "aggregate failed: %v", err)
	}
	defer cursor.Close(ctx)
	if err := cursor.Err(); err != nil {
		return schemadb.NewError(schemadb.KindMigrationFailed, collection, "aggregate cursor error: %v", err)
	}
	return nil
}

func (m *Mongo) FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error) {
	var out bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapUnavailable(err, "find one in %s", collection)
	}
	return map[string]any(out), nil
}

func (m *Mongo) UpsertOne(ctx context.Context, collection string, filter, update map[string]any) error {
	opts := options.UpdateOne().SetUpsert(true)
	_, err := m.db.Collection(collection).UpdateOne(ctx, bson.M(filter), bson.M{"$set": bson.M(update)}, opts)
	if err != nil {
		return wrapUnavailable(err, "upsert one in %s", collection)
	}
	return nil
}

func (m *Mongo) CountMatching(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	n, err := m.db.Collection(collection).CountDocuments(ctx, bson.M(filter))
	if err != nil {
		return 0, wrapUnavailable(err, "count documents in %s", collection)
	}
	return n, nil
}

func (m *Mongo) InsertMany(ctx context.Context, collection string, docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}
	toInsert := make([]any, len(docs))
	for i, d := range docs {
		toInsert[i] = bson.M(d)
	}
	_, err := m.db.Collection(collection).InsertMany(ctx, toInsert)
	if err != nil {
		return wrapUnavailable(err, "insert many into %s", collection)
	}
	return nil
}

func wrapUnavailable(err error, format string, args ...any) error {
	return schemadb.NewError(schemadb.KindDatabaseUnavailable, "", "%s", errors.Wrapf(err, format, args...).Error())
}
