package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockgraph/schemadb/version"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []string{"0.0.0.0", "1.0.0.1", "1.0.0.2", "1.1.0.0", "2.0.0.0", "10.20.30.40"}
	for _, s := range tests {
		n, err := version.Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, n.String())

		n2, err := version.Parse(n.String())
		require.NoError(t, err)
		assert.Equal(t, n, n2)
	}
}

func TestParseRejectsBadStrings(t *testing.T) {
	bad := []string{
		"1.0.0.A",
		"1.0.0",
		"1.0.0.0.0",
		"1.0.0.",
		".1.0.0",
		"1. 0.0.0",
		"+1.0.0.0",
		"1.0.0.-1",
		"1.0.0.99999999999999999999",
	}
	for _, s := range bad {
		_, err := version.Parse(s)
		assert.Errorf(t, err, "expected parse error for %q", s)
	}
}

func TestCompare(t *testing.T) {
	assert.True(t, version.MustParse("1.0.0.2").Compare(version.MustParse("1.0.0.1")) > 0)
	assert.True(t, version.MustParse("1.1.0.0").Compare(version.MustParse("1.0.99.99")) > 0)
	assert.True(t, version.MustParse("2.0.0.0").Compare(version.MustParse("1.999.999.999")) > 0)
	assert.Equal(t, 0, version.MustParse("1.0.0.0").Compare(version.MustParse("1.0.0.0")))
	assert.True(t, version.MustParse("1.0.0.0").Equal(version.MustParse("1.0.0.0")))
}

func TestIsZero(t *testing.T) {
	assert.True(t, version.Zero.IsZero())
	assert.True(t, version.MustParse("0.0.0.0").IsZero())
	assert.False(t, version.MustParse("0.0.0.1").IsZero())
}

func TestLess(t *testing.T) {
	assert.True(t, version.MustParse("1.0.0.1").Less(version.MustParse("1.0.0.2")))
	assert.False(t, version.MustParse("1.0.0.2").Less(version.MustParse("1.0.0.1")))
}
