package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockgraph/schemadb/render"
)

func sampleJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{"type": "string", "enum": []any{"open", "closed"}},
		},
		"required":             []any{"status"},
		"additionalProperties": false,
	}
}

func TestRenderJSONSchemaAddsDraftTagAndCompiles(t *testing.T) {
	out, err := render.RenderJSONSchema("orders", "1.0.0.1", sampleJSONSchema())
	require.NoError(t, err)
	assert.Equal(t, "https://json-schema.org/draft/2020-12/schema", out["$schema"])
	assert.Equal(t, "orders@1.0.0.1", out["title"])
}

func TestRenderJSONSchemaRejectsIllegalFragment(t *testing.T) {
	_, err := render.RenderJSONSchema("orders", "1.0.0.1", map[string]any{
		"type": 12345, // not a legal JSON-Schema "type" value
	})
	assert.Error(t, err)
}

func TestRenderBSONSchemaIsADeepCopy(t *testing.T) {
	in := map[string]any{"bsonType": "object"}
	out := render.RenderBSONSchema(in)
	out["bsonType"] = "string"
	assert.Equal(t, "object", in["bsonType"], "RenderBSONSchema must not alias the input map")
}

func TestRenderOpenAPIBuildsSingleComponentSchema(t *testing.T) {
	doc, err := render.RenderOpenAPI("orders", "1.0.0.1", sampleJSONSchema())
	require.NoError(t, err)
	require.NotNil(t, doc.Components)
	ref, ok := doc.Components.Schemas["Orders"]
	require.True(t, ok)
	require.NotNil(t, ref.Value)
	assert.Contains(t, ref.Value.Properties, "status")
}
