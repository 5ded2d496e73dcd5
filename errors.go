// Package schemadb holds the error taxonomy shared by every subpackage of
// the schema, index, and migration manager. This mirrors the teacher's
// root-level etre.Error (see api/errors.go) -- a small struct naming a kind
// and a message -- generalized from an HTTP-facing error (Type + HTTPStatus)
// to a pipeline-facing one (Kind + Message), since the HTTP surface is out
// of scope here.
package schemadb

import "fmt"

// Kind enumerates the error taxonomy from the specification's error
// handling design. Kinds are not Go types; they're a closed set of string
// tags so that callers (validation reports, aborted-transition records) can
// switch on them without an import cycle back into every producing package.
type Kind string

const (
	KindBadVersionString        Kind = "BadVersionString"
	KindVersionOutOfOrder       Kind = "VersionOutOfOrder"
	KindDuplicateVersion        Kind = "DuplicateVersion"
	KindUnknownType             Kind = "UnknownType"
	KindCircularTypeReference   Kind = "CircularTypeReference"
	KindMissingTypeField        Kind = "MissingTypeField"
	KindMissingDescription      Kind = "MissingDescription"
	KindUnknownEnumerator       Kind = "UnknownEnumerator"
	KindUnknownEnumeratorVer    Kind = "UnknownEnumeratorVersion"
	KindDuplicateEnumeratorSet  Kind = "DuplicateEnumeratorSet"
	KindUnknownRef              Kind = "UnknownRef"
	KindCircularReference       Kind = "CircularReference"
	KindMalformedFile           Kind = "MalformedFile"
	KindUnsupportedFileKind     Kind = "UnsupportedFileKind"
	KindIndexConflict           Kind = "IndexConflict"
	KindIndexInvalid            Kind = "IndexInvalid"
	KindMigrationFailed         Kind = "MigrationFailed"
	KindValidatorRejected       Kind = "ValidatorRejected"
	KindDatabaseUnavailable     Kind = "DatabaseUnavailable"
	KindCancelled               Kind = "Cancelled"
	KindDeadlineExceeded        Kind = "DeadlineExceeded"
	KindRenderInvalid           Kind = "RenderInvalid"
)

// Retriable reports whether a step that failed with this kind may be
// retried without additional operator intervention (spec.md §7:
// DatabaseUnavailable is the only retriable per-step kind).
func (k Kind) Retriable() bool {
	return k == KindDatabaseUnavailable
}

// Error is a tagged error naming which kind of failure occurred and where.
// Path is a human-readable locator (e.g. "dictionary/types/ipv4.yaml" or
// "users@1.0.0.2.aggregations[1]"); it is empty for errors that have no
// natural file/step locator.
type Error struct {
	Kind    Kind
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
}

// NewError constructs an *Error, the constructor used by every validation
// and per-step failure site in this module.
func NewError(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}
