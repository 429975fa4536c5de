package compile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrimaryLocation(t *testing.T) {
	loc, ok := ParseLine("--> src/main.rs:12:5")
	require.True(t, ok)
	assert.Equal(t, "src/main.rs", loc.Path)
	assert.Equal(t, 12, loc.Line)
	assert.Equal(t, 5, loc.Column)
	assert.True(t, loc.Primary)
}

func TestParseReferenceLocation(t *testing.T) {
	loc, ok := ParseLine("::: src/lib.rs:40:1")
	require.True(t, ok)
	assert.Equal(t, "src/lib.rs", loc.Path)
	assert.Equal(t, 40, loc.Line)
	assert.False(t, loc.Primary)
}

func TestParseLocationWithoutColumn(t *testing.T) {
	loc, ok := ParseLine("--> tests/it.rs:7")
	require.True(t, ok)
	assert.Equal(t, 7, loc.Line)
	assert.Equal(t, 0, loc.Column)
}

func TestParsePanicLine(t *testing.T) {
	loc, ok := ParseLine("thread 'main' panicked at 'index out of bounds', src/main.rs:4")
	require.True(t, ok)
	assert.Equal(t, "src/main.rs", loc.Path)
	assert.Equal(t, 4, loc.Line)
	assert.Equal(t, "index out of bounds", loc.Message)
	assert.True(t, loc.Primary)
}

func TestParseRejectsOrdinaryLines(t *testing.T) {
	for _, line := range []string{
		"error[E0308]: mismatched types",
		"   |",
		"12 |     let x: i32 = \"str\";",
		"warning: unused variable",
		"",
	} {
		_, ok := ParseLine(line)
		assert.False(t, ok, "line %q should not parse", line)
	}
}

func TestScanCollectsInOrder(t *testing.T) {
	output := strings.Join([]string{
		"error[E0308]: mismatched types",
		"  --> src/main.rs:2:18",
		"   |",
		"   = note: expected i32",
		"  ::: src/lib.rs:9:1",
		"thread 'worker' panicked at 'boom', src/job.rs:77",
	}, "\n")

	locs, err := Scan(strings.NewReader(output))
	require.NoError(t, err)
	require.Len(t, locs, 3)

	assert.Equal(t, "src/main.rs", locs[0].Path)
	assert.Equal(t, 2, locs[0].Line)
	assert.Equal(t, 18, locs[0].Column)
	assert.True(t, locs[0].Primary)

	assert.Equal(t, "src/lib.rs", locs[1].Path)
	assert.False(t, locs[1].Primary)

	assert.Equal(t, "src/job.rs", locs[2].Path)
	assert.Equal(t, 77, locs[2].Line)
	assert.Equal(t, "boom", locs[2].Message)
}

func TestParseDigitHeavyPath(t *testing.T) {
	loc, ok := ParseLine("--> tests/2048.rs:3:1")
	require.True(t, ok)
	assert.Equal(t, "tests/2048.rs", loc.Path)
	assert.Equal(t, 3, loc.Line)
}
