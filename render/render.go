// Package render implements the Renderers (spec.md §4.10): pure functions
// that turn a resolved (jsonSchema, bsonSchema) pair, as produced by
// package schema's Resolver, into the three document shapes a caller
// actually wants on disk or over the wire.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/kaptinlin/jsonschema"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/typedict"
)

const jsonSchemaDraft = "https://json-schema.org/draft/2020-12/schema"

// RenderJSONSchema renders the JSON-Schema fragment for one collection
// version: a deep copy of jsonSchema with a `$schema` draft tag attached,
// then compiled through kaptinlin/jsonschema as a self-check that the
// rendered document is itself a legal JSON-Schema document before it is
// handed back to the caller.
func RenderJSONSchema(collection string, v string, jsonSchema map[string]any) (map[string]any, error) {
	out := typedict.DeepCopyMap(jsonSchema)
	out["$schema"] = jsonSchemaDraft
	out["title"] = fmt.Sprintf("%s@%s", collection, v)

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, schemadb.NewError(schemadb.KindRenderInvalid, collection+"@"+v, "cannot marshal rendered JSON schema: %v", err)
	}
	if _, err := jsonschemaCompiler().Compile(raw); err != nil {
		return nil, schemadb.NewError(schemadb.KindRenderInvalid, collection+"@"+v, "rendered JSON schema does not compile: %v", err)
	}
	return out, nil
}

func jsonschemaCompiler() *jsonschema.Compiler {
	return jsonschema.NewCompiler()
}

// RenderBSONSchema renders the BSON-schema fragment suitable for a
// `$jsonSchema` validator document. No self-check is performed here: the
// BSON dialect is validated by the database itself when the validator is
// applied (package applier).
func RenderBSONSchema(bsonSchema map[string]any) map[string]any {
	return typedict.DeepCopyMap(bsonSchema)
}

// RenderOpenAPI builds a minimal OpenAPI document naming one collection's
// rendered JSON-Schema fragment as its sole components.schemas entry.
func RenderOpenAPI(collection string, v string, jsonSchema map[string]any) (*openapi3.T, error) {
	raw, err := json.Marshal(jsonSchema)
	if err != nil {
		return nil, schemadb.NewError(schemadb.KindRenderInvalid, collection+"@"+v, "cannot marshal JSON schema for OpenAPI conversion: %v", err)
	}

	var oaSchema openapi3.Schema
	if err := json.Unmarshal(raw, &oaSchema); err != nil {
		return nil, schemadb.NewError(schemadb.KindRenderInvalid, collection+"@"+v, "rendered JSON schema is not a valid OpenAPI schema fragment: %v", err)
	}

	componentName := componentSchemaName(collection)
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   fmt.Sprintf("%s schema", collection),
			Version: v,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				componentName: &openapi3.SchemaRef{Value: &oaSchema},
			},
		},
	}
	return doc, nil
}

func componentSchemaName(collection string) string {
	out := make([]byte, 0, len(collection))
	upper := true
	for _, r := range collection {
		switch {
		case r == '_' || r == '-':
			upper = true
		case upper:
			out = append(out, byte(toUpper(r)))
			upper = false
		default:
			out = append(out, byte(r))
		}
	}
	return string(out)
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
