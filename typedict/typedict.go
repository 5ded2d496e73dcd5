package typedict

import (
	schemadb "github.com/blockgraph/schemadb"
)

// PrimitiveType is one entry in dictionary/types/<type>.yaml that bottoms
// out the type graph: either a Common shape (one Schema rendered for both
// JSON and BSON, with a mechanical key rename) or a Format-specific shape
// (separate JSONSchema/BSONSchema fragments used verbatim). See spec.md
// §3 PrimitiveType and §4.3.
type PrimitiveType struct {
	Schema     map[string]any `yaml:"schema,omitempty" json:"schema,omitempty"`
	JSONSchema map[string]any `yaml:"json_schema,omitempty" json:"json_schema,omitempty"`
	BSONSchema map[string]any `yaml:"bson_schema,omitempty" json:"bson_schema,omitempty"`
}

// IsCommon reports whether this is the Common shape (a single `schema`).
func (p PrimitiveType) IsCommon() bool { return p.Schema != nil }

// IsFormatSpecific reports whether this is the Format-specific shape (both
// `json_schema` and `bson_schema` present).
func (p PrimitiveType) IsFormatSpecific() bool { return p.JSONSchema != nil && p.BSONSchema != nil }

// TypeDef is the raw shape of one dictionary/types/<type>.yaml file: it may
// describe a PrimitiveType (schema, or json_schema+bson_schema) or a
// complex type (everything else a Node can carry, inlined). Build decides
// which by calling Classify.
type TypeDef struct {
	PrimitiveType `yaml:",inline" json:",inline"`
	Node          `yaml:",inline" json:",inline"`
}

// Classify reports whether a TypeDef is primitive, complex, or neither
// (malformed: no schema fields and no type or $ref).
func (t TypeDef) Classify() (primitive bool, complex bool) {
	if t.PrimitiveType.IsCommon() || t.PrimitiveType.IsFormatSpecific() {
		return true, false
	}
	if t.Node.Type != "" || t.Node.Ref != "" {
		return false, true
	}
	return false, false
}

// Dictionary holds the two populations of named types described by
// spec.md §4.3: primitives (leaves of the type graph) and complex types
// (schema-language documents that resolve recursively, potentially through
// other complex types, down to a primitive).
type Dictionary struct {
	Primitives map[string]PrimitiveType
	Complex    map[string]Node
}

// Build classifies a set of raw type definitions, keyed by type name, into
// a Dictionary. Errors accumulate (spec.md §9 "Error accumulation") rather
// than aborting the whole dictionary on one bad file.
func Build(defs map[string]TypeDef) (*Dictionary, []error) {
	d := &Dictionary{
		Primitives: make(map[string]PrimitiveType),
		Complex:    make(map[string]Node),
	}
	var errs []error
	for name, def := range defs {
		primitive, complex := def.Classify()
		switch {
		case primitive:
			d.Primitives[name] = def.PrimitiveType
		case complex:
			d.Complex[name] = def.Node
		default:
			errs = append(errs, schemadb.NewError(schemadb.KindMissingTypeField, "dictionary/types/"+name,
				"type definition has neither a primitive schema (schema, or json_schema+bson_schema) nor a complex body (type/$ref)"))
		}
	}
	return d, errs
}

// Lookup returns the primitive or complex definition for name. At most one
// of the two return pointers is non-nil when ok is true.
func (d *Dictionary) Lookup(name string) (prim *PrimitiveType, complex *Node, ok bool) {
	if p, found := d.Primitives[name]; found {
		return &p, nil, true
	}
	if c, found := d.Complex[name]; found {
		return nil, &c, true
	}
	return nil, nil, false
}

// RenderPrimitiveJSON renders a primitive type to its JSON-Schema form
// (spec.md §4.3): for the Common shape, a deep copy of Schema used
// unmodified; for the Format-specific shape, JSONSchema used verbatim.
func RenderPrimitiveJSON(p PrimitiveType) map[string]any {
	if p.IsFormatSpecific() {
		return DeepCopyMap(p.JSONSchema)
	}
	return DeepCopyMap(p.Schema)
}

// RenderPrimitiveBSON renders a primitive type to its BSON-schema form
// (spec.md §4.3). For the Common shape, the top-level `type` key is
// renamed to `bsonType`, and where the JSON value is "integer" it becomes
// "int", "number" becomes "double", and "string" is unchanged -- no other
// transformation is applied. For the Format-specific shape, BSONSchema is
// used verbatim.
func RenderPrimitiveBSON(p PrimitiveType) map[string]any {
	if p.IsFormatSpecific() {
		return DeepCopyMap(p.BSONSchema)
	}

	out := DeepCopyMap(p.Schema)
	if t, ok := out["type"]; ok {
		delete(out, "type")
		out["bsonType"] = jsonTypeToBSONType(t)
	}
	return out
}

func jsonTypeToBSONType(t any) any {
	s, ok := t.(string)
	if !ok {
		return t
	}
	switch s {
	case "integer":
		return "int"
	case "number":
		return "double"
	default:
		return s
	}
}

// DeepCopyMap returns a recursive copy of m so renderers never hand back a
// document that aliases the dictionary's own stored schema fragments.
func DeepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = DeepCopyValue(v)
	}
	return out
}

// DeepCopyValue recursively copies maps and slices; scalars are returned
// as-is since they are immutable in Go.
func DeepCopyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return DeepCopyMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = DeepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
