// Package indent computes the target indentation column for any line. The
// engine is a rule cascade over a "baseline": the body column of the
// bracket level enclosing the line. There is no parse tree; everything is
// re-derived from the buffer text, and every rule has a fallback so the
// engine always produces an answer.
package indent

import (
	"strings"

	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/lexctx"
	"github.com/mookid/rust-mode/internal/textbuf"
)

// itemKeywords start a top-level item; a line whose first token is one of
// these never indents as an expression continuation.
var itemKeywords = map[string]bool{
	"fn": true, "pub": true, "struct": true, "enum": true,
	"impl": true, "trait": true, "mod": true, "use": true,
	"const": true, "static": true, "type": true, "union": true,
	"extern": true, "crate": true, "unsafe": true, "async": true,
}

type Engine struct {
	buf     *textbuf.Buffer
	sc      *lexctx.Scanner
	cfg     *config.Config
	regions []lexctx.Region
	scanned bool
}

func New(buf *textbuf.Buffer, cfg *config.Config) *Engine {
	return &Engine{buf: buf, sc: lexctx.NewScanner(buf), cfg: cfg}
}

// IndentForLine returns the target indentation column for the 0-based line.
// Running it on an already-correct line returns the line's current column.
func (e *Engine) IndentForLine(line int) int {
	buf := e.buf
	ls := buf.LineStart(line)
	st := e.sc.StateAt(ls)
	cur := buf.Indentation(line)
	head := strings.TrimLeft(buf.LineText(line), " \t")

	// Multi-line strings are never reindented, except for the one escape
	// hatch: a conventional string whose previous line ends in a
	// continuation backslash.
	if st.InString() {
		if st.Kind == lexctx.RawString {
			return cur
		}
		return e.stringContinuation(line, st, cur)
	}

	baseline := e.baseline(line, st.Depth)

	// Continuation lines of a block comment: line up the asterisks one
	// column past the baseline.
	if st.Kind == lexctx.BlockComment {
		if strings.HasPrefix(head, "*") {
			return baseline + 1
		}
		return cur // comment prose is left alone
	}

	if strings.HasPrefix(head, "->") && e.cfg.AlignReturnType {
		if col, ok := e.argListColumn(ls); ok {
			return col
		}
		return baseline + e.cfg.IndentOffset
	}

	if len(head) > 0 && (head[0] == ')' || head[0] == ']' || head[0] == '}') {
		return max(baseline-e.cfg.IndentOffset, 0)
	}

	first := firstToken(head)

	if first == "where" && !e.cfg.IndentWhereClause {
		return baseline
	}

	if e.cfg.AlignMethodChain && strings.HasPrefix(head, ".") {
		if col, ok := e.methodChainColumn(line); ok {
			return col
		}
	}

	if col, ok := e.alignAfterOpenBrace(ls); ok {
		return col
	}

	if first != "where" {
		if col, ok := e.whereBoundColumn(line, head, baseline); ok {
			return col
		}
	}

	if e.staysAtBaseline(line, head, first) {
		return baseline
	}
	return baseline + e.cfg.IndentOffset
}

// stringContinuation implements the backslash-continuation rule: align to
// the previous line, or just past the opening quote when the previous line
// is the string's first and holds more than the quote and the backslash.
func (e *Engine) stringContinuation(line int, st lexctx.State, cur int) int {
	if line == 0 {
		return cur
	}
	prevEnd := e.buf.LineEnd(line - 1)
	if e.buf.Byte(prevEnd-1) != '\\' {
		return cur
	}
	openLine := e.buf.LineOf(st.Start)
	if openLine == line-1 {
		openCol := e.buf.ColumnOf(st.Start)
		if int(prevEnd-1)-int(st.Start) > 1 {
			return openCol + 1
		}
		return e.buf.Indentation(line - 1)
	}
	return e.buf.Indentation(line - 1)
}

// baseline returns the body column of the bracket level enclosing the line:
// the indentation of the line owning the enclosing opener, one level in.
func (e *Engine) baseline(line int, depth int) int {
	if depth == 0 {
		return 0
	}
	ls := e.buf.LineStart(line)
	opener, ok := e.enclosingOpener(ls)
	if !ok {
		return 0
	}
	owner := e.ownerLine(opener)
	return e.buf.Indentation(owner) + e.cfg.IndentOffset
}

// ownerLine resolves the line whose indentation anchors the opener's level.
// It backs out of brackets that are themselves open at the opener's line
// start, then skips over a leading return-type arrow or where clause to the
// signature that owns them.
func (e *Engine) ownerLine(opener textbuf.Pos) int {
	line := e.buf.LineOf(opener)
	target := e.sc.DepthAt(opener)
	for i := 0; i < 64; i++ {
		ls := e.buf.LineStart(line)
		if e.sc.DepthAt(ls) <= target {
			break
		}
		up, ok := e.enclosingOpener(ls)
		if !ok {
			break
		}
		upLine := e.buf.LineOf(up)
		if upLine == line {
			break
		}
		line = upLine
	}
	for i := 0; i < 64; i++ {
		head := firstToken(strings.TrimLeft(e.buf.LineText(line), " \t"))
		text := strings.TrimLeft(e.buf.LineText(line), " \t")
		if head == "where" || strings.HasPrefix(text, "->") {
			prev, _, ok := e.prevCodeLine(line)
			if !ok {
				break
			}
			line = prev
			continue
		}
		break
	}
	return line
}

// enclosingOpener finds the innermost (, [ or { left unclosed before pos.
func (e *Engine) enclosingOpener(pos textbuf.Pos) (textbuf.Pos, bool) {
	regions := e.allRegions()
	counts := map[byte]int{}
	for p := pos - 1; p >= 0; p-- {
		if reg, ok := regionContaining(regions, p); ok {
			p = reg.Span.Start
			continue
		}
		switch b := e.buf.Byte(p); b {
		case ')', ']', '}':
			counts[textbuf.MatchingOpen(b)]++
		case '(', '[', '{':
			if counts[b] == 0 {
				return p, true
			}
			counts[b]--
		}
	}
	return 0, false
}

// argListColumn aligns a leading `->` with the opening paren of the
// argument list that precedes it.
func (e *Engine) argListColumn(ls textbuf.Pos) (int, bool) {
	p := e.rewindIrrelevant(ls)
	if p == 0 || e.buf.Byte(p-1) != ')' {
		return 0, false
	}
	open, ok := e.matchBackward(p - 1)
	if !ok {
		return 0, false
	}
	return e.buf.ColumnOf(open), true
}

// methodChainColumn finds the nearest preceding chain link line at the same
// nesting level and returns its dot column.
func (e *Engine) methodChainColumn(line int) (int, bool) {
	depth := e.sc.DepthAt(e.buf.LineStart(line))
	for l := line - 1; l >= 0; l-- {
		if e.buf.IsBlankLine(l) || e.commentOnlyLine(l) {
			continue
		}
		head := strings.TrimLeft(e.buf.LineText(l), " \t")
		if !strings.HasPrefix(head, ".") {
			return 0, false
		}
		if e.sc.DepthAt(e.buf.LineStart(l)) == depth {
			return e.buf.Indentation(l), true
		}
	}
	return 0, false
}

// alignAfterOpenBrace aligns with the first token after the enclosing open
// brace when that brace's line carries trailing content.
func (e *Engine) alignAfterOpenBrace(ls textbuf.Pos) (int, bool) {
	opener, ok := e.enclosingOpener(ls)
	if !ok || e.buf.Byte(opener) != '{' {
		return 0, false
	}
	openLine := e.buf.LineOf(opener)
	after := opener + 1
	end := e.buf.LineEnd(openLine)
	for after < end && (e.buf.Byte(after) == ' ' || e.buf.Byte(after) == '\t') {
		after++
	}
	if after >= end {
		return 0, false
	}
	if e.buf.HasPrefixAt(after, "//") || e.buf.HasPrefixAt(after, "/*") {
		return 0, false
	}
	return e.buf.ColumnOf(after), true
}

// whereBoundColumn aligns a continuation bound of a multi-line where block
// with the first bound after the where keyword, so all bounds line up with
// each other regardless of the where-indent option. Only bound-shaped lines
// qualify: a brace or closer below a where clause opens or ends the body
// rather than continuing the bound list.
func (e *Engine) whereBoundColumn(line int, head string, baseline int) (int, bool) {
	if len(head) == 0 {
		return 0, false
	}
	switch head[0] {
	case '{', ')', ']', '}':
		return 0, false
	}
	l := line - 1
	for l >= 0 {
		if e.buf.IsBlankLine(l) || e.commentOnlyLine(l) {
			l--
			continue
		}
		head := firstToken(strings.TrimLeft(e.buf.LineText(l), " \t"))
		if head == "where" {
			ws, _ := e.buf.FirstNonSpace(l)
			bound := e.buf.SkipSpaceForward(ws + textbuf.Pos(len("where")))
			if e.buf.LineOf(bound) != l {
				// `where` ended its line; the first bound set the level.
				return baseline + e.cfg.IndentOffset, true
			}
			return e.buf.ColumnOf(bound), true
		}
		last, ok := e.lastCodeByte(l)
		if !ok || (last != ',' && last != '+') {
			return 0, false
		}
		l--
	}
	return 0, false
}

// staysAtBaseline decides rule 6c: a line stays at the baseline when it
// opens a new statement rather than continuing the previous expression.
func (e *Engine) staysAtBaseline(line int, head, first string) bool {
	if strings.HasPrefix(head, "{") || strings.HasPrefix(head, "//") ||
		strings.HasPrefix(head, "/*") || strings.HasPrefix(head, "#") {
		return true
	}
	if first == "else" || itemKeywords[first] {
		return true
	}
	prev, last, ok := e.prevCodeLine(line)
	if !ok {
		return true
	}
	prevHead := strings.TrimLeft(e.buf.LineText(prev), " \t")
	if strings.HasPrefix(prevHead, "#[") || strings.HasPrefix(prevHead, "#![") {
		return true
	}
	switch last {
	case '{', '}', '(', '[', ',', ';':
		return true
	}
	return false
}

// prevCodeLine walks upward to the nearest line carrying code and returns
// its index and last code byte.
func (e *Engine) prevCodeLine(line int) (int, byte, bool) {
	for l := line - 1; l >= 0; l-- {
		if e.buf.IsBlankLine(l) || e.commentOnlyLine(l) {
			continue
		}
		if b, ok := e.lastCodeByte(l); ok {
			return l, b, true
		}
	}
	return 0, 0, false
}

// lastCodeByte returns the last byte of the line that is neither whitespace
// nor inside a comment.
func (e *Engine) lastCodeByte(line int) (byte, bool) {
	regions := e.allRegions()
	start := e.buf.LineStart(line)
	for p := e.buf.LineEnd(line) - 1; p >= start; p-- {
		c := e.buf.Byte(p)
		if c == ' ' || c == '\t' {
			continue
		}
		if reg, ok := regionContaining(regions, p); ok && reg.Kind.IsComment() {
			p = reg.Span.Start
			continue
		}
		return c, true
	}
	return 0, false
}

func (e *Engine) commentOnlyLine(line int) bool {
	p, ok := e.buf.FirstNonSpace(line)
	if !ok {
		return false
	}
	if e.buf.HasPrefixAt(p, "//") {
		return true
	}
	if reg, okr := regionContaining(e.allRegions(), p); okr && reg.Kind.IsComment() {
		// Inside or opening a block comment: comment-only when no code
		// follows its end on this line.
		_, hasCode := e.lastCodeByte(line)
		return !hasCode
	}
	return false
}

func (e *Engine) rewindIrrelevant(p textbuf.Pos) textbuf.Pos {
	regions := e.allRegions()
	for {
		q := e.buf.SkipSpaceBack(p)
		if q > 0 {
			if reg, ok := regionContaining(regions, q-1); ok && reg.Kind.IsComment() {
				p = reg.Span.Start
				continue
			}
		}
		return q
	}
}

func (e *Engine) matchBackward(close textbuf.Pos) (textbuf.Pos, bool) {
	regions := e.allRegions()
	closer := e.buf.Byte(close)
	opener := textbuf.MatchingOpen(closer)
	depth := 0
	for p := close; p >= 0; {
		if reg, ok := regionContaining(regions, p); ok {
			p = reg.Span.Start - 1
			continue
		}
		switch e.buf.Byte(p) {
		case closer:
			depth++
		case opener:
			depth--
			if depth == 0 {
				return p, true
			}
		}
		p--
	}
	return 0, false
}

func (e *Engine) allRegions() []lexctx.Region {
	if !e.scanned {
		e.regions = e.sc.Regions(0, textbuf.Pos(e.buf.Len()))
		e.scanned = true
	}
	return e.regions
}

func regionContaining(regions []lexctx.Region, p textbuf.Pos) (lexctx.Region, bool) {
	for _, reg := range regions {
		if reg.Span.Contains(p) {
			return reg, true
		}
	}
	return lexctx.Region{}, false
}

func firstToken(head string) string {
	i := 0
	for i < len(head) && textbuf.IsIdentByte(head[i]) {
		i++
	}
	return head[:i]
}
