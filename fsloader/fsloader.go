// Package fsloader is the File-system loader (spec.md §6.1): it walks an
// input tree and builds a *schema.Universe from it. Malformed or
// unrecognized files are surfaced per-file, without aborting the rest of
// the load (spec.md §9 "Error accumulation"), so the Validation Pass can
// still report every other problem in the same run.
package fsloader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	goyaml "github.com/goccy/go-yaml"

	schemadb "github.com/blockgraph/schemadb"
	"github.com/blockgraph/schemadb/enumreg"
	"github.com/blockgraph/schemadb/schema"
	"github.com/blockgraph/schemadb/typedict"
)

var versionedFileRE = regexp.MustCompile(`^([A-Za-z0-9_-]+)\.(\d+)\.(\d+)\.(\d+)\.ya?ml$`)
var testDataFileRE = regexp.MustCompile(`^([A-Za-z0-9_-]+)\.(\d+)\.(\d+)\.(\d+)\.(\d+)\.json$`)

// Loader walks the input tree described by spec.md §6.1.
type Loader struct{}

// New builds a Loader. Loader carries no state between calls.
func New() *Loader {
	return &Loader{}
}

// Load walks root (collections/, dictionary/, dictionary/types/, data/) and
// returns a fully-populated Universe plus any per-file errors encountered.
// A file-level error never aborts the rest of the walk.
func (l *Loader) Load(root string) (*schema.Universe, []error) {
	var errs []error

	testData := l.loadTestDataIndex(filepath.Join(root, "data"), &errs)

	types := l.loadTypeDefs(filepath.Join(root, "dictionary", "types"), &errs)
	dict, dictErrs := typedict.Build(types)
	errs = append(errs, dictErrs...)

	refs := l.loadRefs(filepath.Join(root, "dictionary"), &errs)
	versionSchemas := l.loadVersionSchemas(filepath.Join(root, "dictionary"), &errs)
	collections := l.loadCollections(filepath.Join(root, "collections"), versionSchemas, &errs)
	enums := l.loadEnumerators(filepath.Join(root, "data"), &errs)

	universe := &schema.Universe{
		Collections: collections,
		Dictionary:  dict,
		Enumerators: enums,
		Refs:        refs,
		TestData:    testData,
	}
	return universe, errs
}

func (l *Loader) loadCollections(dir string, versionSchemas map[string]*typedict.Node, errs *[]error) map[string]schema.CollectionConfig {
	out := make(map[string]schema.CollectionConfig)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			*errs = append(*errs, schemadb.NewError(schemadb.KindUnsupportedFileKind, path, "unsupported file extension %q in collections/", ext))
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot read file: %v", err))
			continue
		}
		var cc schema.CollectionConfig
		if err := goyaml.Unmarshal(raw, &cc); err != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot parse YAML: %v", err))
			continue
		}

		for i := range cc.Versions {
			v := cc.Versions[i].Version
			key := schemaKey(cc.Name, v.Major, v.Minor, v.Patch)
			if node, ok := versionSchemas[key]; ok {
				cc.Versions[i].Schema = node
			}
		}
		out[cc.Name] = cc
	}
	return out
}

// loadVersionSchemas loads every dictionary/<name>.<M>.<m>.<p>.yaml file,
// keyed by schemaKey(name, M, m, p). The enumerator component of a
// collection's full version string lives only in collections/<name>.yaml,
// never in the dictionary file name, so loadCollections looks its schema up
// by major.minor.patch alone.
func (l *Loader) loadVersionSchemas(dir string, errs *[]error) map[string]*typedict.Node {
	out := make(map[string]*typedict.Node)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := versionedFileRE.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot read file: %v", err))
			continue
		}
		var node typedict.Node
		if err := goyaml.Unmarshal(raw, &node); err != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot parse YAML: %v", err))
			continue
		}
		major, _ := strconv.Atoi(m[2])
		minor, _ := strconv.Atoi(m[3])
		patch, _ := strconv.Atoi(m[4])
		out[schemaKey(m[1], major, minor, patch)] = &node
	}
	return out
}

func schemaKey(name string, major, minor, patch int) string {
	return name + "@" + strconv.Itoa(major) + "." + strconv.Itoa(minor) + "." + strconv.Itoa(patch)
}

func (l *Loader) loadTypeDefs(dir string, errs *[]error) map[string]typedict.TypeDef {
	out := make(map[string]typedict.TypeDef)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot read file: %v", err))
			continue
		}
		var def typedict.TypeDef
		if err := goyaml.Unmarshal(raw, &def); err != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot parse YAML: %v", err))
			continue
		}
		out[name] = def
	}
	return out
}

// loadRefs loads every dictionary/**/*.yaml file that is not a top-level
// versioned collection schema and not under dictionary/types/, keyed by its
// slash-separated path relative to dictionary/ -- the namespace $ref values
// resolve against.
func (l *Loader) loadRefs(dir string, errs *[]error) map[string]typedict.Node {
	out := make(map[string]typedict.Node)
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info == nil || info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		if strings.HasPrefix(rel, "types"+string(filepath.Separator)) {
			return nil
		}
		if versionedFileRE.MatchString(filepath.Base(path)) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot read file: %v", readErr))
			return nil
		}
		var node typedict.Node
		if unmarshalErr := goyaml.Unmarshal(raw, &node); unmarshalErr != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot parse YAML: %v", unmarshalErr))
			return nil
		}
		out[filepath.ToSlash(rel)] = node
		return nil
	})
	return out
}

func (l *Loader) loadEnumerators(dir string, errs *[]error) *enumreg.Registry {
	for _, name := range []string{"enumerators.json", "enumerators.yaml", "enumerators.yml"} {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var sets []enumreg.EnumeratorSet
		var parseErr error
		if strings.HasSuffix(name, ".json") {
			parseErr = json.Unmarshal(raw, &sets)
		} else {
			parseErr = goyaml.Unmarshal(raw, &sets)
		}
		if parseErr != nil {
			*errs = append(*errs, schemadb.NewError(schemadb.KindMalformedFile, path, "cannot parse enumerators file: %v", parseErr))
			reg, _ := enumreg.Load(nil)
			return reg
		}
		reg, loadErrs := enumreg.Load(sets)
		*errs = append(*errs, loadErrs...)
		return reg
	}
	reg, _ := enumreg.Load(nil)
	return reg
}

// loadTestDataIndex records the name of every test-data file present under
// data/, keyed by its base filename (what VersionSpec.TestData references).
func (l *Loader) loadTestDataIndex(dir string, errs *[]error) map[string]bool {
	out := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if testDataFileRE.MatchString(entry.Name()) {
			out[entry.Name()] = true
		}
	}
	return out
}
