package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/enumreg"
	"github.com/blockgraph/schemadb/schema"
	"github.com/blockgraph/schemadb/typedict"
)

func newEnums(t *testing.T) *enumreg.Registry {
	t.Helper()
	reg, errs := enumreg.Load([]enumreg.EnumeratorSet{
		{
			Name:    "statuses",
			Status:  enumreg.StatusActive,
			Version: 1,
			Enumerators: map[string]map[string]string{
				"order_status": {"open": "Open order", "closed": "Closed order"},
			},
		},
	})
	require.Empty(t, errs)
	return reg
}

func TestResolveObjectWithPrimitiveAndEnumFields(t *testing.T) {
	dict, errs := typedict.Build(map[string]typedict.TypeDef{
		"short_string": {PrimitiveType: typedict.PrimitiveType{Schema: map[string]any{"type": "string", "maxLength": 64}}},
	})
	require.Empty(t, errs)

	r := schema.NewResolver(dict, nil, newEnums(t))

	root := &typedict.Node{
		Type: "object",
		Properties: []typedict.Property{
			{Name: "id", Node: typedict.Node{Type: "short_string", Required: true}},
			{Name: "status", Node: typedict.Node{Type: "enum", Enums: "order_status", Required: true}},
		},
	}

	j, b, errs := r.Resolve("orders", 1, root)
	require.Empty(t, errs)

	assert.Equal(t, "object", j["type"])
	assert.ElementsMatch(t, []string{"id", "status"}, j["required"])

	idJSON := j["properties"].(map[string]any)["id"].(map[string]any)
	assert.Equal(t, "string", idJSON["type"])

	statusBSON := b["properties"].(map[string]any)["status"].(map[string]any)
	assert.Equal(t, []string{"closed", "open"}, statusBSON["enum"])
}

func TestResolveNamedCircularType(t *testing.T) {
	dict, errs := typedict.Build(map[string]typedict.TypeDef{
		"a": {Node: typedict.Node{Type: "object", Properties: []typedict.Property{
			{Name: "b", Node: typedict.Node{Type: "b"}},
		}}},
		"b": {Node: typedict.Node{Type: "object", Properties: []typedict.Property{
			{Name: "a", Node: typedict.Node{Type: "a"}},
		}}},
	})
	require.Empty(t, errs)

	r := schema.NewResolver(dict, nil, newEnums(t))
	_, _, errs = r.Resolve("root", 1, &typedict.Node{Type: "a"})
	require.NotEmpty(t, errs)

	serr, ok := errs[0].(*schemadb.Error)
	require.True(t, ok)
	assert.Equal(t, schemadb.KindCircularTypeReference, serr.Kind)
}

func TestResolveRefCycleDetected(t *testing.T) {
	refs := map[string]typedict.Node{
		"one.yaml": {Ref: "two.yaml"},
		"two.yaml": {Ref: "one.yaml"},
	}
	r := schema.NewResolver(&typedict.Dictionary{}, refs, newEnums(t))
	_, _, errs := r.Resolve("root", 1, &typedict.Node{Ref: "one.yaml"})
	require.NotEmpty(t, errs)
	serr, ok := errs[0].(*schemadb.Error)
	require.True(t, ok)
	assert.Equal(t, schemadb.KindCircularReference, serr.Kind)
}

func TestResolveOneOfProducesDiscriminatedBranches(t *testing.T) {
	dict, dictErrs := typedict.Build(map[string]typedict.TypeDef{
		"string_prim": {PrimitiveType: typedict.PrimitiveType{Schema: map[string]any{"type": "string"}}},
	})
	require.Empty(t, dictErrs)
	r := schema.NewResolver(dict, nil, newEnums(t))

	root := &typedict.Node{
		Type:         "one_of",
		TypeProperty: "kind",
		Schemas: []typedict.OneOfBranch{
			{Value: "card", Schema: &typedict.Node{Type: "object", Properties: []typedict.Property{
				{Name: "number", Node: typedict.Node{Type: "string_prim"}},
			}}},
			{Value: "cash", Schema: &typedict.Node{Type: "object"}},
		},
	}

	j, _, errs := r.Resolve("payment", 1, root)
	require.Empty(t, errs)

	assert.Equal(t, true, j["additionalProperties"])
	assert.Equal(t, []string{"kind"}, j["required"])
	branches := j["oneOf"].([]any)
	require.Len(t, branches, 2)
}

func TestResolveUnknownRef(t *testing.T) {
	r := schema.NewResolver(&typedict.Dictionary{}, map[string]typedict.Node{}, newEnums(t))
	_, _, errs := r.Resolve("root", 1, &typedict.Node{Ref: "missing.yaml"})
	require.NotEmpty(t, errs)
	serr := errs[0].(*schemadb.Error)
	assert.Equal(t, schemadb.KindUnknownRef, serr.Kind)
}
