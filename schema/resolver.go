package schema

import (
	"sort"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/enumreg"
	"github.com/blockgraph/schemadb/typedict"
)

// Resolver expands a typedict.Node tree into a (JSON-Schema, BSON-schema)
// pair, following $ref and named-custom-type references through a Universe.
// A Resolver is built once per Universe and reused across every collection
// version; Resolve accumulates errors rather than aborting on the first one
// (same "don't short-circuit" posture as package enumreg and package
// typedict), since the Validation Pass (package validate) drives this same
// entry point in a dry run and wants every defect in one report.
type Resolver struct {
	dict  *typedict.Dictionary
	refs  map[string]typedict.Node
	enums *enumreg.Registry
}

// NewResolver builds a Resolver over the given Universe's dictionary, $ref
// table, and enumerator registry.
func NewResolver(dict *typedict.Dictionary, refs map[string]typedict.Node, enums *enumreg.Registry) *Resolver {
	return &Resolver{dict: dict, refs: refs, enums: enums}
}

// Resolve expands root into its JSON-Schema and BSON-schema forms. The
// enumerator-version component of ver selects which EnumeratorSet backs any
// `enum`/`enum_array` node reached during the walk.
func (r *Resolver) Resolve(path string, enumVersion int, root *typedict.Node) (jsonSchema, bsonSchema map[string]any, errs []error) {
	return r.resolveNode(path, root, enumVersion, map[string]bool{}, map[string]bool{})
}

func (r *Resolver) resolveNode(path string, node *typedict.Node, enumVersion int, visitingTypes, refPath map[string]bool) (map[string]any, map[string]any, []error) {
	if node == nil {
		return nil, nil, []error{schemadb.NewError(schemadb.KindMissingTypeField, path, "schema node is nil")}
	}

	switch node.Kind() {
	case typedict.KindRef:
		return r.resolveRef(path, node, enumVersion, visitingTypes, refPath)
	case typedict.KindObject:
		return r.resolveObject(path, node, enumVersion, visitingTypes, refPath)
	case typedict.KindArray:
		return r.resolveArray(path, node, enumVersion, visitingTypes, refPath)
	case typedict.KindEnum:
		return r.resolveEnum(path, node, enumVersion, false)
	case typedict.KindEnumArray:
		return r.resolveEnum(path, node, enumVersion, true)
	case typedict.KindOneOf:
		return r.resolveOneOf(path, node, enumVersion, visitingTypes, refPath)
	case typedict.KindNamed:
		return r.resolveNamed(path, node, enumVersion, visitingTypes, refPath)
	default:
		return nil, nil, []error{schemadb.NewError(schemadb.KindUnknownType, path, "unrecognized node kind")}
	}
}

func (r *Resolver) resolveObject(path string, node *typedict.Node, enumVersion int, visitingTypes, refPath map[string]bool) (map[string]any, map[string]any, []error) {
	var errs []error
	jsonProps := map[string]any{}
	bsonProps := map[string]any{}
	required := []string{}

	for _, prop := range node.Properties {
		if prop.Name == "" {
			errs = append(errs, schemadb.NewError(schemadb.KindMissingTypeField, path, "object property has an empty name"))
			continue
		}
		childPath := path + "." + prop.Name
		childNode := prop.Node
		j, b, childErrs := r.resolveNode(childPath, &childNode, enumVersion, visitingTypes, refPath)
		errs = append(errs, childErrs...)
		if j != nil {
			jsonProps[prop.Name] = j
		}
		if b != nil {
			bsonProps[prop.Name] = b
		}
		if prop.Required {
			required = append(required, prop.Name)
		}
	}

	additional := false
	if node.AdditionalProperties != nil {
		additional = *node.AdditionalProperties
	}

	jsonOut := map[string]any{
		"type":                 "object",
		"properties":           jsonProps,
		"required":             required,
		"additionalProperties": additional,
	}
	bsonOut := map[string]any{
		"bsonType":             "object",
		"properties":           bsonProps,
		"required":             required,
		"additionalProperties": additional,
	}
	withDescription(jsonOut, bsonOut, node.Description)
	return jsonOut, bsonOut, errs
}

func (r *Resolver) resolveArray(path string, node *typedict.Node, enumVersion int, visitingTypes, refPath map[string]bool) (map[string]any, map[string]any, []error) {
	if node.Items == nil {
		return nil, nil, []error{schemadb.NewError(schemadb.KindMissingTypeField, path, "array node has no items")}
	}
	itemsJSON, itemsBSON, errs := r.resolveNode(path+"[]", node.Items, enumVersion, visitingTypes, refPath)

	jsonOut := map[string]any{"type": "array", "items": itemsJSON}
	bsonOut := map[string]any{"bsonType": "array", "items": itemsBSON}
	withDescription(jsonOut, bsonOut, node.Description)
	return jsonOut, bsonOut, errs
}

func (r *Resolver) resolveEnum(path string, node *typedict.Node, enumVersion int, asArray bool) (map[string]any, map[string]any, []error) {
	if node.Enums == "" {
		return nil, nil, []error{schemadb.NewError(schemadb.KindMissingTypeField, path, "enum node has no enums name")}
	}
	keys, err := r.enums.Keys(node.Enums, enumVersion)
	if err != nil {
		return nil, nil, []error{err}
	}
	sort.Strings(keys)

	jsonLeaf := map[string]any{"type": "string", "enum": keys}
	bsonLeaf := map[string]any{"bsonType": "string", "enum": keys}

	if !asArray {
		withDescription(jsonLeaf, bsonLeaf, node.Description)
		return jsonLeaf, bsonLeaf, nil
	}

	jsonOut := map[string]any{"type": "array", "items": jsonLeaf}
	bsonOut := map[string]any{"bsonType": "array", "items": bsonLeaf}
	withDescription(jsonOut, bsonOut, node.Description)
	return jsonOut, bsonOut, nil
}

// resolveOneOf renders a discriminated union as a base object carrying the
// discriminator field plus a standards-aligned if/then polymorphism
// construct, one branch per declared alternative, in authoring order.
//
// The base object sets additionalProperties: true, overriding this
// resolver's usual default of false: branch-only properties are not part of
// the base object's own property list, and JSON Schema's additionalProperties
// only inspects the schema it is declared on, not sibling if/then branches.
// Forcing it false here would reject every field a one_of branch adds. This
// is a deliberate, documented choice; see DESIGN.md.
func (r *Resolver) resolveOneOf(path string, node *typedict.Node, enumVersion int, visitingTypes, refPath map[string]bool) (map[string]any, map[string]any, []error) {
	if node.TypeProperty == "" {
		return nil, nil, []error{schemadb.NewError(schemadb.KindMissingTypeField, path, "one_of node has no type_property")}
	}
	if len(node.Schemas) == 0 {
		return nil, nil, []error{schemadb.NewError(schemadb.KindMissingTypeField, path, "one_of node has no schemas")}
	}

	var errs []error
	values := make([]string, 0, len(node.Schemas))
	var jsonBranches, bsonBranches []any

	for _, branch := range node.Schemas {
		if branch.Value == "" {
			errs = append(errs, schemadb.NewError(schemadb.KindMissingTypeField, path, "one_of branch has an empty discriminator value"))
			continue
		}
		values = append(values, branch.Value)
		if branch.Schema == nil {
			errs = append(errs, schemadb.NewError(schemadb.KindMissingTypeField, path, "one_of branch %q has no schema", branch.Value))
			continue
		}

		childPath := path + "[" + branch.Value + "]"
		j, b, childErrs := r.resolveNode(childPath, branch.Schema, enumVersion, visitingTypes, refPath)
		errs = append(errs, childErrs...)

		jsonBranches = append(jsonBranches, map[string]any{
			"if":   map[string]any{"properties": map[string]any{node.TypeProperty: map[string]any{"const": branch.Value}}},
			"then": j,
		})
		bsonBranches = append(bsonBranches, map[string]any{
			"if":   map[string]any{"properties": map[string]any{node.TypeProperty: map[string]any{"enum": []string{branch.Value}}}},
			"then": b,
		})
	}

	jsonOut := map[string]any{
		"type": "object",
		"properties": map[string]any{
			node.TypeProperty: map[string]any{"type": "string", "enum": values},
		},
		"required":             []string{node.TypeProperty},
		"additionalProperties": true,
		"oneOf":                jsonBranches,
	}
	bsonOut := map[string]any{
		"bsonType": "object",
		"properties": map[string]any{
			node.TypeProperty: map[string]any{"bsonType": "string", "enum": values},
		},
		"required":             []string{node.TypeProperty},
		"additionalProperties": true,
		"oneOf":                bsonBranches,
	}
	withDescription(jsonOut, bsonOut, node.Description)
	return jsonOut, bsonOut, errs
}

func (r *Resolver) resolveRef(path string, node *typedict.Node, enumVersion int, visitingTypes, refPath map[string]bool) (map[string]any, map[string]any, []error) {
	if refPath[node.Ref] {
		return nil, nil, []error{schemadb.NewError(schemadb.KindCircularReference, path, "circular $ref through %q", node.Ref)}
	}
	target, ok := r.refs[node.Ref]
	if !ok {
		return nil, nil, []error{schemadb.NewError(schemadb.KindUnknownRef, path, "$ref %q does not resolve to a known dictionary file", node.Ref)}
	}

	refPath[node.Ref] = true
	j, b, errs := r.resolveNode(path+"->"+node.Ref, &target, enumVersion, visitingTypes, refPath)
	delete(refPath, node.Ref)

	withDescription(j, b, node.Description)
	return j, b, errs
}

func (r *Resolver) resolveNamed(path string, node *typedict.Node, enumVersion int, visitingTypes, refPath map[string]bool) (map[string]any, map[string]any, []error) {
	if node.Type == "" {
		return nil, nil, []error{schemadb.NewError(schemadb.KindMissingTypeField, path, "node has no type, $ref, or recognized structural kind")}
	}
	prim, complex, ok := r.dict.Lookup(node.Type)
	if !ok {
		return nil, nil, []error{schemadb.NewError(schemadb.KindUnknownType, path, "unknown type %q", node.Type)}
	}
	if prim != nil {
		j := typedict.RenderPrimitiveJSON(*prim)
		b := typedict.RenderPrimitiveBSON(*prim)
		withDescription(j, b, node.Description)
		return j, b, nil
	}

	if visitingTypes[node.Type] {
		return nil, nil, []error{schemadb.NewError(schemadb.KindCircularTypeReference, path, "circular reference through type %q", node.Type)}
	}
	visitingTypes[node.Type] = true
	j, b, errs := r.resolveNode(path+"#"+node.Type, complex, enumVersion, visitingTypes, refPath)
	delete(visitingTypes, node.Type)

	withDescription(j, b, node.Description)
	return j, b, errs
}

// withDescription overlays a usage-site description onto already-resolved
// JSON/BSON fragments, taking precedence over any description the shared
// $ref target or named type already carries.
func withDescription(jsonOut, bsonOut map[string]any, description string) {
	if description == "" {
		return
	}
	if jsonOut != nil {
		jsonOut["description"] = description
	}
	if bsonOut != nil {
		bsonOut["description"] = description
	}
}
