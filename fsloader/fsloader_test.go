package fsloader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/fsloader"
	"github.com/blockgraph/schemadb/version"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadBuildsCompleteUniverse(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "dictionary", "types", "short_string.yaml"), `
schema:
  type: string
  maxLength: 64
`)

	writeFile(t, filepath.Join(root, "dictionary", "orders.1.0.0.yaml"), `
type: object
properties:
  - name: status
    type: enum
    enums: order_status
    required: true
`)

	writeFile(t, filepath.Join(root, "dictionary", "address.yaml"), `
type: object
properties:
  - name: city
    type: short_string
`)

	writeFile(t, filepath.Join(root, "collections", "orders.yaml"), `
name: orders
versions:
  - version: "1.0.0.1"
    test_data: orders.1.0.0.1.json
`)

	writeFile(t, filepath.Join(root, "data", "enumerators.json"), `
[{"name": "s", "status": "Active", "version": 1, "enumerators": {"order_status": {"open": "Open"}}}]
`)

	writeFile(t, filepath.Join(root, "data", "orders.1.0.0.1.json"), `[]`)

	loader := fsloader.New()
	universe, errs := loader.Load(root)
	require.Empty(t, errs)
	require.NotNil(t, universe)

	cc, ok := universe.Collections["orders"]
	require.True(t, ok)
	require.Len(t, cc.Versions, 1)
	require.NotNil(t, cc.Versions[0].Schema, "version schema must be matched by major.minor.patch, ignoring the enumerator component")
	assert.Equal(t, version.Number{Major: 1, Minor: 0, Patch: 0, Enumerator: 1}, cc.Versions[0].Version)
	assert.Equal(t, "object", cc.Versions[0].Schema.Type)

	assert.True(t, universe.TestData["orders.1.0.0.1.json"])

	_, _, ok = universe.Dictionary.Lookup("short_string")
	assert.True(t, ok)

	_, ok = universe.Refs["address.yaml"]
	assert.True(t, ok, "address.yaml is not a versioned collection schema, so it loads as a $ref target")

	_, ok = universe.Refs["orders.1.0.0.yaml"]
	assert.False(t, ok, "a versioned collection schema file must not also be loaded as a $ref")

	m, err := universe.Enumerators.Resolve("order_status", 1)
	require.NoError(t, err)
	assert.Equal(t, "Open", m["open"])
}

func TestLoadSurfacesMalformedFileWithoutAbortingRestOfTree(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "collections", "orders.yaml"), `
name: orders
versions:
  - version: "1.0.0.1"
`)
	writeFile(t, filepath.Join(root, "dictionary", "orders.1.0.0.yaml"), `
type: object
`)
	writeFile(t, filepath.Join(root, "collections", "broken.yaml"), "{not: valid: yaml:")

	loader := fsloader.New()
	universe, errs := loader.Load(root)
	require.NotEmpty(t, errs)

	found := false
	for _, e := range errs {
		if serr, ok := e.(*schemadb.Error); ok && serr.Kind == schemadb.KindMalformedFile {
			found = true
		}
	}
	assert.True(t, found)

	_, ok := universe.Collections["orders"]
	assert.True(t, ok, "one malformed collection file must not prevent the rest of collections/ from loading")
}

func TestLoadFlagsUnsupportedFileKindInCollections(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "collections", "readme.txt"), "not a collection file")

	loader := fsloader.New()
	_, errs := loader.Load(root)
	require.NotEmpty(t, errs)

	found := false
	for _, e := range errs {
		if serr, ok := e.(*schemadb.Error); ok && serr.Kind == schemadb.KindUnsupportedFileKind {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLoadToleratesMissingDirectories(t *testing.T) {
	root := t.TempDir()

	loader := fsloader.New()
	universe, errs := loader.Load(root)
	require.Empty(t, errs)
	require.NotNil(t, universe)
	assert.Empty(t, universe.Collections)
	assert.Empty(t, universe.TestData)
	assert.NotNil(t, universe.Enumerators)
}
