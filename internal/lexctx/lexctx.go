// Package lexctx derives the lexical state of any buffer position: the
// enclosing string or comment, its kind, and the bracket nesting depth.
// It is a forward character scanner, not a parser; every other analysis
// in this module sits on top of it.
package lexctx

import (
	"fmt"
	"unicode/utf8"

	"github.com/mookid/rust-mode/internal/textbuf"
)

type Kind int

const (
	Code Kind = iota
	String
	RawString
	Char
	LineComment
	BlockComment
)

func (k Kind) IsComment() bool {
	return k == LineComment || k == BlockComment
}

func (k Kind) String() string {
	switch k {
	case Code:
		return "code"
	case String:
		return "string"
	case RawString:
		return "raw-string"
	case Char:
		return "char"
	case LineComment:
		return "line-comment"
	case BlockComment:
		return "block-comment"
	}
	return "unknown"
}

// State is the lexical-state tuple for one position. Depth counts brackets
// opened strictly before the position; Start is the opening delimiter of the
// enclosing string or comment, or -1 in plain code.
type State struct {
	Depth int
	Kind  Kind
	Doc   bool
	Start textbuf.Pos
}

func (s State) InString() bool {
	return s.Kind == String || s.Kind == RawString || s.Kind == Char
}

func (s State) InComment() bool {
	return s.Kind == LineComment || s.Kind == BlockComment
}

func (s State) InStringOrComment() bool {
	return s.InString() || s.InComment()
}

// Region is one string or comment token. Fence is the hash count of a raw
// string delimiter. Terminated is false when the token runs to buffer end.
type Region struct {
	Span       textbuf.Span
	Kind       Kind
	Doc        bool
	Fence      int
	Terminated bool
}

type ScanError struct {
	Message string
	Pos     textbuf.Pos
}

// Scanner classifies positions of a single buffer.
type Scanner struct {
	buf *textbuf.Buffer
}

func NewScanner(buf *textbuf.Buffer) *Scanner {
	return &Scanner{buf: buf}
}

// StateAt re-derives the lexical state for pos by scanning from the start of
// the buffer. It never fails; pathological input degrades to a code state.
func (s *Scanner) StateAt(pos textbuf.Pos) State {
	if pos < 0 {
		pos = 0
	}
	w := walker{buf: s.buf}
	for w.pos < pos {
		reg, ok := w.step()
		if ok && reg.Span.Contains(pos) {
			return State{Depth: w.depth, Kind: reg.Kind, Doc: reg.Doc, Start: reg.Span.Start}
		}
	}
	return State{Depth: w.depth, Kind: Code, Start: -1}
}

// DepthAt returns the bracket nesting depth at pos.
func (s *Scanner) DepthAt(pos textbuf.Pos) int {
	return s.StateAt(pos).Depth
}

// Regions returns every string and comment token intersecting [from, to),
// scanning from the buffer start so that an already-open token spanning into
// the window is never missed.
func (s *Scanner) Regions(from, to textbuf.Pos) []Region {
	if to > textbuf.Pos(s.buf.Len()) {
		to = textbuf.Pos(s.buf.Len())
	}
	var regions []Region
	w := walker{buf: s.buf}
	for w.pos < to {
		reg, ok := w.step()
		if ok && reg.Span.End > from && reg.Span.Start < to {
			regions = append(regions, reg)
		}
	}
	return regions
}

// Check reports unterminated strings and block comments, the only lexical
// problems this scanner can diagnose without a grammar.
func (s *Scanner) Check() []ScanError {
	var errs []ScanError
	w := walker{buf: s.buf}
	end := textbuf.Pos(s.buf.Len())
	for w.pos < end {
		reg, ok := w.step()
		if !ok || reg.Terminated {
			continue
		}
		switch reg.Kind {
		case String:
			errs = append(errs, ScanError{Message: "unterminated string literal", Pos: reg.Span.Start})
		case RawString:
			errs = append(errs, ScanError{
				Message: fmt.Sprintf("unterminated raw string literal (missing closing quote and %d '#')", reg.Fence),
				Pos:     reg.Span.Start,
			})
		case BlockComment:
			errs = append(errs, ScanError{Message: "unterminated block comment", Pos: reg.Span.Start})
		}
	}
	return errs
}

// walker advances through the buffer one token or code byte at a time,
// maintaining bracket depth for code bytes.
type walker struct {
	buf   *textbuf.Buffer
	pos   textbuf.Pos
	depth int
}

// step consumes the token starting at w.pos. It returns the consumed region
// and true when that token is a string or comment; otherwise it consumes a
// code chunk (one byte, or a whole identifier) and returns false.
func (w *walker) step() (Region, bool) {
	b := w.buf
	c := b.Byte(w.pos)
	switch {
	case c == '/' && b.Byte(w.pos+1) == '/':
		return w.lineComment(), true
	case c == '/' && b.Byte(w.pos+1) == '*':
		return w.blockComment(), true
	case c == '"':
		return w.stringLit(w.pos), true
	case c == '\'':
		if reg, ok := w.charLit(); ok {
			return reg, true
		}
		// Lifetime sigil or stray quote: plain code.
		w.pos++
		return Region{}, false
	case (c == 'r' || c == 'b') && !textbuf.IsIdentByte(b.Byte(w.pos-1)):
		if reg, ok := w.rawString(); ok {
			return reg, true
		}
		w.skipIdent()
		return Region{}, false
	case textbuf.IsIdentByte(c):
		w.skipIdent()
		return Region{}, false
	default:
		switch c {
		case '(', '[', '{':
			w.depth++
		case ')', ']', '}':
			if w.depth > 0 {
				w.depth--
			}
		}
		w.pos++
		return Region{}, false
	}
}

func (w *walker) skipIdent() {
	for int(w.pos) < w.buf.Len() && textbuf.IsIdentByte(w.buf.Byte(w.pos)) {
		w.pos++
	}
}

func (w *walker) lineComment() Region {
	b := w.buf
	start := w.pos
	doc := (b.HasPrefixAt(start, "///") && b.Byte(start+3) != '/') || b.HasPrefixAt(start, "//!")
	p := start
	for int(p) < b.Len() && b.Byte(p) != '\n' {
		p++
	}
	w.pos = p
	return Region{Span: textbuf.Span{Start: start, End: p}, Kind: LineComment, Doc: doc, Terminated: true}
}

func (w *walker) blockComment() Region {
	b := w.buf
	start := w.pos
	doc := (b.HasPrefixAt(start, "/**") && b.Byte(start+3) != '/') || b.HasPrefixAt(start, "/*!")
	p := start + 2
	nest := 1
	for int(p) < b.Len() {
		if b.HasPrefixAt(p, "/*") {
			nest++
			p += 2
			continue
		}
		if b.HasPrefixAt(p, "*/") {
			nest--
			p += 2
			if nest == 0 {
				w.pos = p
				return Region{Span: textbuf.Span{Start: start, End: p}, Kind: BlockComment, Doc: doc, Terminated: true}
			}
			continue
		}
		p++
	}
	w.pos = p
	return Region{Span: textbuf.Span{Start: start, End: p}, Kind: BlockComment, Doc: doc}
}

// stringLit consumes a conventional string literal with backslash escapes.
func (w *walker) stringLit(start textbuf.Pos) Region {
	b := w.buf
	p := start + 1
	for int(p) < b.Len() {
		switch b.Byte(p) {
		case '\\':
			p += 2
		case '"':
			w.pos = p + 1
			return Region{Span: textbuf.Span{Start: start, End: p + 1}, Kind: String, Terminated: true}
		default:
			p++
		}
	}
	w.pos = p
	return Region{Span: textbuf.Span{Start: start, End: p}, Kind: String}
}

// rawString consumes r"...", br#"..."# and friends. The closing delimiter is
// a quote followed by the same number of hashes as the opener; nothing inside
// is escape-processed.
func (w *walker) rawString() (Region, bool) {
	b := w.buf
	start := w.pos
	p := start
	if b.Byte(p) == 'b' {
		p++
	}
	if b.Byte(p) != 'r' {
		return Region{}, false
	}
	p++
	fence := 0
	for b.Byte(p) == '#' {
		fence++
		p++
	}
	if b.Byte(p) != '"' {
		return Region{}, false
	}
	p++
	for int(p) < b.Len() {
		if b.Byte(p) == '"' {
			q := p + 1
			n := 0
			for n < fence && b.Byte(q) == '#' {
				n++
				q++
			}
			if n == fence {
				w.pos = q
				return Region{Span: textbuf.Span{Start: start, End: q}, Kind: RawString, Fence: fence, Terminated: true}, true
			}
		}
		p++
	}
	w.pos = p
	return Region{Span: textbuf.Span{Start: start, End: p}, Kind: RawString, Fence: fence}, true
}

// charLit consumes a character or byte literal. A lone quote that does not
// close within one (possibly escaped) character is a lifetime sigil, which
// keeps 'a in <'a, 'b> from opening a string.
func (w *walker) charLit() (Region, bool) {
	b := w.buf
	start := w.pos
	p := start + 1
	c := b.Byte(p)
	switch {
	case c == 0 || c == '\'':
		return Region{}, false
	case c == '\\':
		p++
		switch b.Byte(p) {
		case 'x':
			p += 3
		case 'u':
			p++
			if b.Byte(p) != '{' {
				return Region{}, false
			}
			for int(p) < b.Len() && b.Byte(p) != '}' {
				p++
			}
			p++
		default:
			p++
		}
	default:
		_, size := utf8.DecodeRuneInString(b.Text()[p:])
		p += textbuf.Pos(size)
	}
	if b.Byte(p) != '\'' {
		return Region{}, false
	}
	w.pos = p + 1
	return Region{Span: textbuf.Span{Start: start, End: p + 1}, Kind: Char, Terminated: true}, true
}
