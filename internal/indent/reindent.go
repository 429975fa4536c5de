package indent

import (
	"strings"

	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/lexctx"
	"github.com/mookid/rust-mode/internal/textbuf"
)

// LineEdit returns the target column for the line and whether the line may
// be rewritten at all. String interiors and comment prose are off limits;
// reporting them as non-applicable keeps rewrites from normalizing tabs
// inside literals.
func (e *Engine) LineEdit(line int) (int, bool) {
	ls := e.buf.LineStart(line)
	st := e.sc.StateAt(ls)
	if st.Kind == lexctx.RawString {
		return 0, false
	}
	cur := e.buf.Indentation(line)
	col := e.IndentForLine(line)
	if st.InString() || st.Kind == lexctx.BlockComment {
		if col == cur {
			return 0, false
		}
	}
	return col, true
}

// ReindentAll recomputes the indentation of every line, top to bottom. Each
// line is applied before the next is computed because later lines anchor on
// earlier ones. The result is a fixed point: running it twice changes
// nothing.
func ReindentAll(name, text string, cfg *config.Config) string {
	for line := 0; ; line++ {
		buf := textbuf.New(name, text)
		if line >= buf.LineCount() {
			break
		}
		if buf.IsBlankLine(line) {
			text = setLineIndent(buf, line, 0, true)
			continue
		}
		e := New(buf, cfg)
		col, ok := e.LineEdit(line)
		if !ok {
			continue
		}
		text = setLineIndent(buf, line, col, false)
	}
	return text
}

func setLineIndent(buf *textbuf.Buffer, line, col int, blank bool) string {
	text := buf.Text()
	start := buf.LineStart(line)
	end := buf.LineEnd(line)
	if blank {
		return text[:start] + text[end:]
	}
	content, _ := buf.FirstNonSpace(line)
	return text[:start] + strings.Repeat(" ", col) + text[content:end] + text[end:]
}

// AdjustCursor maps a cursor column across a reindent of its line: a cursor
// inside the old indentation follows the new indentation edge, one past it
// keeps its offset relative to the content.
func AdjustCursor(oldIndent, newIndent, cursor int) int {
	if cursor <= oldIndent {
		return newIndent
	}
	return cursor - oldIndent + newIndent
}
