// Package validate implements the Validation Pass (spec.md §4.5): a
// pre-processing step that runs the load + resolve pipeline in a dry mode
// and returns every discovered structural error instead of stopping at the
// first (spec.md §9 "Error accumulation").
package validate

import (
	"fmt"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/schema"
	"github.com/blockgraph/schemadb/typedict"
	"github.com/blockgraph/schemadb/version"
)

// Run validates every collection in universe and returns the full,
// aggregated list of errors. An empty return means the universe is clean.
func Run(universe *schema.Universe) []error {
	var errs []error
	resolver := schema.NewResolver(universe.Dictionary, universe.Refs, universe.Enumerators)
	enums := universe.Enumerators

	for name, cc := range universe.Collections {
		if !cc.ValidName() {
			errs = append(errs, schemadb.NewError(schemadb.KindMalformedFile, "collections/"+name,
				"collection name %q does not match the required slug pattern", cc.Name))
		}
		errs = append(errs, checkVersionOrder(cc)...)

		for _, v := range cc.Versions {
			path := fmt.Sprintf("collections/%s@%s", cc.Name, v.Version.String())

			if err := enums.ActiveSet(v.Version.Enumerator); err != nil {
				errs = append(errs, err)
			}

			if v.TestData != "" && !universe.TestData[v.TestData] {
				errs = append(errs, schemadb.NewError(schemadb.KindMalformedFile, path,
					"test_data %q is not present in the test-data tree", v.TestData))
			}

			if v.Schema == nil {
				errs = append(errs, schemadb.NewError(schemadb.KindMalformedFile, path,
					"version has no schema document"))
			} else {
				_, _, resolveErrs := resolver.Resolve(path, v.Version.Enumerator, v.Schema)
				errs = append(errs, resolveErrs...)
				errs = append(errs, checkOneOfDiscriminators(path, v.Schema, nil)...)
				errs = append(errs, checkDescriptions(path, v.Schema)...)
			}
		}
	}
	return errs
}

func checkVersionOrder(cc schema.CollectionConfig) []error {
	var errs []error
	var prev version.Number
	havePrev := false
	for _, v := range cc.Versions {
		if havePrev {
			switch {
			case v.Version.Compare(prev) == 0:
				errs = append(errs, schemadb.NewError(schemadb.KindDuplicateVersion, "collections/"+cc.Name,
					"version %s is declared more than once", v.Version))
			case v.Version.Compare(prev) < 0:
				errs = append(errs, schemadb.NewError(schemadb.KindVersionOutOfOrder, "collections/"+cc.Name,
					"version %s does not strictly exceed predecessor %s", v.Version, prev))
			}
		}
		prev = v.Version
		havePrev = true
	}
	return errs
}

// checkDescriptions enforces that every object property carries a
// description (spec.md §4.4 "Every property has description and type"). The
// root schema node itself is not a property of anything, so it is exempt;
// array items and one_of branch bodies are walked for their own nested
// properties but are not themselves required to carry a description, since
// neither is "a property" in the data model's sense.
func checkDescriptions(path string, node *typedict.Node) []error {
	if node == nil {
		return nil
	}
	var errs []error
	switch node.Kind() {
	case typedict.KindObject:
		for _, p := range node.Properties {
			childPath := path + "." + p.Name
			if p.Description == "" {
				errs = append(errs, schemadb.NewError(schemadb.KindMissingDescription, childPath,
					"property %q has no description", p.Name))
			}
			child := p.Node
			errs = append(errs, checkDescriptions(childPath, &child)...)
		}
	case typedict.KindArray:
		errs = append(errs, checkDescriptions(path+"[]", node.Items)...)
	case typedict.KindOneOf:
		for _, branch := range node.Schemas {
			errs = append(errs, checkDescriptions(path+"["+branch.Value+"]", branch.Schema)...)
		}
	}
	return errs
}

// checkOneOfDiscriminators enforces that a one_of node's type_property names
// a property of its enclosing object (spec.md §4.5). Only directly-authored
// one_of nodes are checked this way: once the walk crosses a $ref or named
// custom type boundary, the enclosing-object scope is considered reset,
// since a reusable type's discriminator is validated against whatever
// object eventually embeds it at each of its own use sites, not the one
// that happens to reference it first. See DESIGN.md.
func checkOneOfDiscriminators(path string, node *typedict.Node, enclosing map[string]bool) []error {
	if node == nil {
		return nil
	}
	var errs []error
	switch node.Kind() {
	case typedict.KindObject:
		props := make(map[string]bool, len(node.Properties))
		for _, p := range node.Properties {
			props[p.Name] = true
		}
		for _, p := range node.Properties {
			child := p.Node
			errs = append(errs, checkOneOfDiscriminators(path+"."+p.Name, &child, props)...)
		}
	case typedict.KindArray:
		errs = append(errs, checkOneOfDiscriminators(path+"[]", node.Items, nil)...)
	case typedict.KindOneOf:
		if node.TypeProperty != "" && enclosing != nil && !enclosing[node.TypeProperty] {
			errs = append(errs, schemadb.NewError(schemadb.KindMissingTypeField, path,
				"one_of type_property %q does not name a property of the enclosing object", node.TypeProperty))
		}
		for _, branch := range node.Schemas {
			errs = append(errs, checkOneOfDiscriminators(path+"["+branch.Value+"]", branch.Schema, nil)...)
		}
	}
	return errs
}
