package macroscope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mookid/rust-mode/internal/textbuf"
)

func scanAll(src string) (*textbuf.Buffer, Result) {
	buf := textbuf.New("test.rs", src)
	return buf, NewTracker(buf).ScopeAll()
}

func TestZeroValueIsNotComputed(t *testing.T) {
	var r Result
	assert.False(t, r.Computed())
	assert.False(t, r.Empty())
	assert.False(t, r.Contains(0))
	assert.False(t, NotComputed.Computed())
}

func TestComputedEmptyDiffersFromNotComputed(t *testing.T) {
	_, r := scanAll("fn main() { let x = 1; }\n")
	assert.True(t, r.Computed())
	assert.True(t, r.Empty())
}

func TestSimpleInvocation(t *testing.T) {
	src := `fn main() { println!("{} < {}", a, b); }`
	buf, r := scanAll(src)

	require.Len(t, r.Spans(), 1)
	span := r.Spans()[0]
	assert.Equal(t, byte('('), buf.Byte(span.Start))
	assert.Equal(t, byte(')'), buf.Byte(span.End-1))
	assert.True(t, r.Contains(textbuf.Pos(strings.Index(src, "a, b"))))
	assert.False(t, r.Contains(textbuf.Pos(strings.Index(src, "fn"))))
}

func TestBangMustAbutIdentifier(t *testing.T) {
	// A negation reads as a bang with no abutting identifier.
	_, r := scanAll("fn f() { if !cond { g(); } }")
	assert.True(t, r.Empty())

	// Inequality is an operator, not an invocation.
	_, r = scanAll("fn f() { if a != b { g(); } }")
	assert.True(t, r.Empty())

	// Space between identifier and bang disqualifies the invocation.
	_, r = scanAll("fn f() { foo !(x); }")
	assert.True(t, r.Empty())
}

func TestBracketVariants(t *testing.T) {
	src := "fn f() { vec![1, 2]; write!{buf, x}; }"
	_, r := scanAll(src)

	require.Len(t, r.Spans(), 2)
	assert.True(t, r.Contains(textbuf.Pos(strings.Index(src, "1, 2"))))
	assert.True(t, r.Contains(textbuf.Pos(strings.Index(src, "buf, x"))))
}

func TestMacroRulesDefinition(t *testing.T) {
	src := "macro_rules! my_macro {\n    ($x:expr) => { $x < 3 };\n}\n"
	_, r := scanAll(src)

	require.Len(t, r.Spans(), 1)
	assert.True(t, r.Contains(textbuf.Pos(strings.Index(src, "$x:expr"))))
	assert.False(t, r.Contains(textbuf.Pos(strings.Index(src, "my_macro"))))
}

func TestUnmatchedOpenerYieldsNoSpan(t *testing.T) {
	_, r := scanAll("fn f() { println!(\"truncated\"")
	assert.True(t, r.Computed())
	assert.True(t, r.Empty())
}

func TestBangInsideStringIgnored(t *testing.T) {
	_, r := scanAll(`fn f() { let s = "println!(not real)"; }`)
	assert.True(t, r.Empty())
}

func TestNestedBrackets(t *testing.T) {
	src := "fn f() { assert_eq!(v[0], (1, 2)); } tail"
	buf, r := scanAll(src)

	require.Len(t, r.Spans(), 1)
	span := r.Spans()[0]
	assert.Equal(t, byte('('), buf.Byte(span.Start))
	assert.Equal(t, ")", buf.Slice(textbuf.Span{Start: span.End - 1, End: span.End}))
	assert.False(t, r.Contains(textbuf.Pos(strings.Index(src, "tail"))))
}

func TestScopeWindowRewindsToItemStart(t *testing.T) {
	src := "fn main() {\n    println!(\n        \"multi\",\n        value < 3,\n    );\n}\n"
	buf := textbuf.New("test.rs", src)

	// The window starts mid-invocation; the rewind still finds the body.
	from := textbuf.Pos(strings.Index(src, "value"))
	r := NewTracker(buf).Scope(from, from+10)
	require.True(t, r.Computed())
	assert.True(t, r.Contains(from))
}
