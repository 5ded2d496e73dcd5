// Package version implements the four-component schema version number
// ("major.minor.patch.enumerator") used to tag every declared collection
// version. A Number is an immutable value type: construct one with Parse
// and compare with Compare/Less/Equal.
package version

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadVersionString is returned by Parse when the input does not match
// exactly four dot-separated non-negative decimal integers.
var ErrBadVersionString = errors.New("bad version string")

// Number is a four-component version: major.minor.patch.enumerator. The
// zero value, Number{}, is the sentinel "never applied" version 0.0.0.0.
type Number struct {
	Major      int
	Minor      int
	Patch      int
	Enumerator int
}

// Zero is the sentinel version denoting "never applied".
var Zero = Number{}

// Parse parses a string of the form "M.m.p.e" into a Number. Each component
// must be a non-negative decimal integer with no leading '+' and no
// surrounding whitespace; leading zeros are permitted. Any other shape,
// including a missing or extra dot, fails with ErrBadVersionString.
func Parse(s string) (Number, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return Number{}, errors.Wrapf(ErrBadVersionString, "%q: expected 4 dot-separated components, got %d", s, len(parts))
	}

	var nums [4]int
	for i, p := range parts {
		if p == "" {
			return Number{}, errors.Wrapf(ErrBadVersionString, "%q: component %d is empty", s, i)
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return Number{}, errors.Wrapf(ErrBadVersionString, "%q: component %d (%q) is not a plain non-negative integer", s, i, p)
			}
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n > 1<<31-1 {
			return Number{}, errors.Wrapf(ErrBadVersionString, "%q: component %d (%q) overflows a 32-bit integer", s, i, p)
		}
		nums[i] = int(n)
	}

	return Number{Major: nums[0], Minor: nums[1], Patch: nums[2], Enumerator: nums[3]}, nil
}

// MustParse parses s and panics on error. Intended for tests and static
// version literals, never for data of unknown provenance.
func MustParse(s string) Number {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// UnmarshalYAML lets a Number be authored as a plain "M.m.p.e" scalar in
// collections/<name>.yaml, instead of four separate fields.
func (n *Number) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// MarshalYAML renders a Number back to its canonical "M.m.p.e" scalar form.
func (n Number) MarshalYAML() (any, error) {
	return n.String(), nil
}

// UnmarshalJSON lets a Number be authored as a plain "M.m.p.e" JSON string.
func (n *Number) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// MarshalJSON renders a Number back to its canonical "M.m.p.e" JSON string.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// String renders the version back to its canonical "M.m.p.e" form. For
// every Number, Parse(n.String()) == n.
func (n Number) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", n.Major, n.Minor, n.Patch, n.Enumerator)
}

// IsZero reports whether n is the sentinel 0.0.0.0 "never applied" version.
func (n Number) IsZero() bool {
	return n == Zero
}

// Compare returns -1, 0, or 1 as n is strictly less than, equal to, or
// greater than other, using lexicographic order over
// (Major, Minor, Patch, Enumerator).
func (n Number) Compare(other Number) int {
	switch {
	case n.Major != other.Major:
		return cmpInt(n.Major, other.Major)
	case n.Minor != other.Minor:
		return cmpInt(n.Minor, other.Minor)
	case n.Patch != other.Patch:
		return cmpInt(n.Patch, other.Patch)
	default:
		return cmpInt(n.Enumerator, other.Enumerator)
	}
}

// Less reports whether n sorts strictly before other.
func (n Number) Less(other Number) bool {
	return n.Compare(other) < 0
}

// Equal reports whether n and other denote the same version.
func (n Number) Equal(other Number) bool {
	return n == other
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler so a Number can be encoded
// directly by goccy/go-yaml and encoding/json without a bespoke hook at
// every call site.
func (n Number) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Number) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
