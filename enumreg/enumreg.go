// Package enumreg holds the versioned enumerator sets referenced by the
// `enum` and `enum_array` schema nodes. It is loaded once from
// data/enumerators.json (or .yaml) and resolves (name, version) pairs to a
// frozen value->description map, mirroring how the teacher's schema.Field
// carried a flat []string Enum (the teacher's schema/legacy_config.go, not
// part of this repository) -- generalized here into
// a versioned, shared registry so multiple collections and multiple
// versions of the same collection can reference the same named enumerator
// set without repeating its values inline.
package enumreg

import (
	schemadb "github.com/blockgraph/schemadb"
)

// Status is the lifecycle state of one EnumeratorSet.
type Status string

const (
	StatusActive     Status = "Active"
	StatusDeprecated Status = "Deprecated"
)

// EnumeratorSet is one versioned collection of named enumerators, as loaded
// from data/enumerators.json.
type EnumeratorSet struct {
	Name        string                       `json:"name" yaml:"name"`
	Status      Status                       `json:"status" yaml:"status"`
	Version     int                          `json:"version" yaml:"version"`
	Enumerators map[string]map[string]string `json:"enumerators" yaml:"enumerators"`
}

// Registry resolves (enumeratorName, version) to a frozen value->description
// map. It is immutable once built by Load.
type Registry struct {
	sets map[int]EnumeratorSet
}

// Load builds a Registry from the raw list of enumerator sets parsed out of
// the enumerator file. Errors accumulate rather than aborting on the first
// bad set (spec.md §9, "Error accumulation"); the returned Registry is
// still usable for every set that loaded cleanly.
func Load(raw []EnumeratorSet) (*Registry, []error) {
	var errs []error
	sets := make(map[int]EnumeratorSet, len(raw))
	for _, set := range raw {
		if existing, ok := sets[set.Version]; ok {
			errs = append(errs, schemadb.NewError(schemadb.KindDuplicateEnumeratorSet, "data/enumerators",
				"enumerator set version %d defined more than once (names %q and %q)", set.Version, existing.Name, set.Name))
			continue
		}
		sets[set.Version] = set
	}
	return &Registry{sets: sets}, errs
}

// Resolve returns the frozen value->description map for the named
// enumerator at the given version. The version selects the EnumeratorSet
// (spec.md §3: "The set whose integer version matches ... is the one
// resolved"); the name then selects one enumerator within that set.
func (r *Registry) Resolve(name string, version int) (map[string]string, error) {
	set, ok := r.sets[version]
	if !ok {
		return nil, schemadb.NewError(schemadb.KindUnknownEnumeratorVer, "data/enumerators",
			"no enumerator set defined for version %d", version)
	}
	values, ok := set.Enumerators[name]
	if !ok {
		return nil, schemadb.NewError(schemadb.KindUnknownEnumerator, "data/enumerators",
			"enumerator %q not defined in set version %d (%s)", name, version, set.Name)
	}

	// Defensive copy: callers must not be able to mutate the registry's
	// internal state through the returned map.
	frozen := make(map[string]string, len(values))
	for k, v := range values {
		frozen[k] = v
	}
	return frozen, nil
}

// ActiveSet reports whether the enumerator set at the given version exists
// and is Active, used by the validation pass (spec.md §4.5: "every
// collection's enumerator-version component resolves to an existing Active
// EnumeratorSet").
func (r *Registry) ActiveSet(version int) error {
	set, ok := r.sets[version]
	if !ok {
		return schemadb.NewError(schemadb.KindUnknownEnumeratorVer, "data/enumerators",
			"no enumerator set defined for version %d", version)
	}
	if set.Status != StatusActive {
		return schemadb.NewError(schemadb.KindUnknownEnumeratorVer, "data/enumerators",
			"enumerator set version %d (%s) is %s, not Active", version, set.Name, set.Status)
	}
	return nil
}

// Keys returns the value list for an enumerator, used as the `enum` array in
// rendered schemas. The list is read from a Go map, so its order is not
// defined (neither sorted nor the authored order); callers that need a
// deterministic rendering order sort the returned slice themselves. This
// function is a convenience wrapper over Resolve.
func (r *Registry) Keys(name string, version int) ([]string, error) {
	values, err := r.Resolve(name, version)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys, nil
}
