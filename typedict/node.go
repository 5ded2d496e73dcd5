// Package typedict implements the Type Dictionary: the collection of
// primitive and complex custom types a schema file may reference by name
// (spec.md §4.3), plus the Node tree shared by both the dictionary's
// complex type bodies and the top-level per-version schema files loaded by
// package schema.
//
// Node deliberately models the schema dialect's sum type (object, array,
// enum, enum_array, one_of, $ref, or a bare custom type name -- spec.md §9
// "Dynamic-typed maps -> tagged variants") as one flat struct decoded
// directly by struct tags, rather than as unstructured map[string]any: the
// Kind method below is the single place that decides which variant a given
// Node is, so the resolver in package schema can switch on it
// exhaustively instead of re-deriving the same presence checks at every
// call site.
//
// Object properties and one_of branches are authored as ordered YAML/JSON
// *sequences* ([]Property / []OneOfBranch), not mappings, so a plain
// struct-tag decode keeps their declaration order without custom
// YAML-order-preservation hooks. The resolver keeps that order for one_of
// branches (the rendered oneOf list) and for an object's required list. An
// object's rendered properties are a Go map, so their key order in output is
// not the authored order. See DESIGN.md.
package typedict

// Kind names the variant of a Node.
type Kind string

const (
	KindObject    Kind = "object"
	KindArray     Kind = "array"
	KindEnum      Kind = "enum"
	KindEnumArray Kind = "enum_array"
	KindOneOf     Kind = "one_of"
	KindRef       Kind = "ref"
	KindNamed     Kind = "named"
)

// Node is one node of the schema-language tree. Which fields are
// meaningful depends on Kind(); see the field comments below.
type Node struct {
	// Type names the node's kind for "object", "array", "enum",
	// "enum_array", and "one_of", or otherwise names a custom type to
	// resolve via the Type Dictionary (KindNamed).
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Ref, when non-empty, makes this a $ref node: a relative file name
	// within the dictionary tree (spec.md §4.4).
	Ref string `yaml:"$ref,omitempty" json:"$ref,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`

	// object
	Properties           []Property `yaml:"properties,omitempty" json:"properties,omitempty"`
	AdditionalProperties *bool      `yaml:"additional_properties,omitempty" json:"additional_properties,omitempty"`

	// array
	Items *Node `yaml:"items,omitempty" json:"items,omitempty"`

	// enum / enum_array: the name of the enumerator to resolve via the
	// Enumerator Registry.
	Enums string `yaml:"enums,omitempty" json:"enums,omitempty"`

	// one_of
	TypeProperty string        `yaml:"type_property,omitempty" json:"type_property,omitempty"`
	Schemas      []OneOfBranch `yaml:"schemas,omitempty" json:"schemas,omitempty"`
}

// Property is one named field of an "object" Node. It embeds Node so a
// property is authored inline as {name: foo, type: string, ...} rather than
// as a name -> Node mapping entry, preserving declaration order as an
// ordinary YAML/JSON sequence.
type Property struct {
	Name string `yaml:"name" json:"name"`
	Node `yaml:",inline" json:",inline"`
}

// OneOfBranch is one discriminated alternative of a "one_of" Node.
type OneOfBranch struct {
	Value  string `yaml:"value" json:"value"`
	Schema *Node  `yaml:"schema" json:"schema"`
}

// Kind classifies this node into one of the seven schema-language variants.
func (n *Node) Kind() Kind {
	switch {
	case n.Ref != "":
		return KindRef
	case n.Type == string(KindObject):
		return KindObject
	case n.Type == string(KindArray):
		return KindArray
	case n.Type == string(KindEnum):
		return KindEnum
	case n.Type == string(KindEnumArray):
		return KindEnumArray
	case n.Type == string(KindOneOf):
		return KindOneOf
	default:
		return KindNamed
	}
}
