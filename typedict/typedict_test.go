package typedict_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockgraph/schemadb/typedict"
)

func TestBuildClassifiesPrimitiveAndComplex(t *testing.T) {
	defs := map[string]typedict.TypeDef{
		"ipv4": {
			PrimitiveType: typedict.PrimitiveType{
				Schema: map[string]any{"type": "string", "pattern": "^\\d+\\.\\d+\\.\\d+\\.\\d+$"},
			},
		},
		"money": {
			PrimitiveType: typedict.PrimitiveType{
				JSONSchema: map[string]any{"type": "string", "pattern": "^-?\\d+\\.\\d{2}$"},
				BSONSchema: map[string]any{"bsonType": "decimal"},
			},
		},
		"address": {
			Node: typedict.Node{
				Type: "object",
				Properties: []typedict.Property{
					{Name: "city", Node: typedict.Node{Type: "string_prim", Description: "City name", Required: true}},
				},
			},
		},
		"broken": {},
	}

	dict, errs := typedict.Build(defs)
	require.Len(t, errs, 1)

	_, _, ok := dict.Lookup("broken")
	assert.False(t, ok)

	prim, complex, ok := dict.Lookup("ipv4")
	require.True(t, ok)
	require.NotNil(t, prim)
	assert.Nil(t, complex)
	assert.True(t, prim.IsCommon())

	prim, complex, ok = dict.Lookup("money")
	require.True(t, ok)
	assert.Nil(t, complex)
	assert.True(t, prim.IsFormatSpecific())

	_, complex, ok = dict.Lookup("address")
	require.True(t, ok)
	require.NotNil(t, complex)
	assert.Equal(t, typedict.KindObject, complex.Kind())
}

func TestRenderPrimitiveCommonRenamesTypeForBSON(t *testing.T) {
	p := typedict.PrimitiveType{Schema: map[string]any{"type": "integer", "minimum": 0}}

	json := typedict.RenderPrimitiveJSON(p)
	assert.Equal(t, "integer", json["type"])

	bsonSchema := typedict.RenderPrimitiveBSON(p)
	assert.Equal(t, "int", bsonSchema["bsonType"])
	assert.NotContains(t, bsonSchema, "type")
	assert.Equal(t, 0, bsonSchema["minimum"])
}

func TestRenderPrimitiveNumberBecomesDouble(t *testing.T) {
	p := typedict.PrimitiveType{Schema: map[string]any{"type": "number"}}
	assert.Equal(t, "double", typedict.RenderPrimitiveBSON(p)["bsonType"])
}

func TestRenderPrimitiveFormatSpecificUsedVerbatim(t *testing.T) {
	p := typedict.PrimitiveType{
		JSONSchema: map[string]any{"type": "string"},
		BSONSchema: map[string]any{"bsonType": "decimal"},
	}
	assert.Equal(t, map[string]any{"type": "string"}, typedict.RenderPrimitiveJSON(p))
	assert.Equal(t, map[string]any{"bsonType": "decimal"}, typedict.RenderPrimitiveBSON(p))
}

func TestDeepCopyDoesNotAliasSource(t *testing.T) {
	src := map[string]any{"nested": map[string]any{"a": 1}}
	dst := typedict.DeepCopyMap(src)
	dst["nested"].(map[string]any)["a"] = 2
	assert.Equal(t, 1, src["nested"].(map[string]any)["a"])
}
