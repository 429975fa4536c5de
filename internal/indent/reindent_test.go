package indent

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/mookid/rust-mode/internal/config"
)

// Line fragments that compose into plausible (if meaningless) source. The
// generator stacks them with arbitrary leading whitespace; a single rewrite
// must reach the engine's fixed point.
var lineFragments = []string{
	"fn frob() {",
	"pub struct Thing {",
	"impl Thing {",
	"let x = 1;",
	"let s = \"text\";",
	"call(a, b);",
	"if ready {",
	"} else {",
	"}",
	"value",
	"+ extra;",
	".chained()",
	"// a comment",
	"#[derive(Debug)]",
	"match v { Some(x) => x,",
	"_ => 0,",
	"",
}

func TestReindentAllReachesFixedPoint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "lines")
		var b strings.Builder
		for i := 0; i < n; i++ {
			pad := rapid.IntRange(0, 10).Draw(t, "pad")
			frag := rapid.SampledFrom(lineFragments).Draw(t, "frag")
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(frag)
			b.WriteString("\n")
		}
		src := b.String()

		once := ReindentAll("gen.rs", src, config.Default())
		twice := ReindentAll("gen.rs", once, config.Default())
		if once != twice {
			t.Fatalf("not a fixed point:\nfirst:\n%s\nsecond:\n%s", once, twice)
		}
	})
}
