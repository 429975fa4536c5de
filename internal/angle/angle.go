// Package angle decides whether a given `<` or `>` is a generic-parameter
// delimiter or a comparison/shift operator. The grammar reuses the same
// glyphs for both, so the decision walks backward through the preceding
// tokens and classifies the expression context. Classification is a pure
// function of the buffer text before the character.
package angle

import (
	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/lexctx"
	"github.com/mookid/rust-mode/internal/macroscope"
	"github.com/mookid/rust-mode/internal/textbuf"
)

// followKind tags a classification request with what follows the token
// being classified. The recursive classifier dispatches on it.
type followKind int

const (
	followAmbiguousOp followKind = iota
	followOpenBrace
	followIdent
	followColon
)

// maxClassifyDepth bounds the recursion on pathological input; past it the
// classifier gives up and assumes an angle bracket.
const maxClassifyDepth = 128

var expressionKeywords = map[string]bool{
	"if": true, "while": true, "match": true, "return": true,
	"box": true, "in": true, "loop": true, "else": true,
	"move": true, "let": true, "mut": true, "ref": true,
	"break": true, "continue": true, "await": true,
	"const": true, "static": true,
}

var typeKeywords = map[string]bool{
	"as": true, "impl": true, "fn": true, "struct": true,
	"enum": true, "trait": true, "type": true, "union": true,
	"dyn": true, "where": true,
}

// primitiveTypes can never be rebound as non-type names, so a `<` after one
// of them is never a comparison.
var primitiveTypes = map[string]bool{
	"bool": true, "char": true, "str": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true,
	"isize": true, "usize": true, "f32": true, "f64": true,
}

// Classifier answers angle-bracket questions for one buffer. The macro-scope
// result is an explicit parameter (seeded via WithScopes or computed once on
// first use) so that two buffers never share cache state.
type Classifier struct {
	buf     *textbuf.Buffer
	sc      *lexctx.Scanner
	cfg     *config.Config
	scopes  macroscope.Result
	regions []lexctx.Region
	scanned bool
}

func New(buf *textbuf.Buffer, cfg *config.Config) *Classifier {
	return &Classifier{buf: buf, sc: lexctx.NewScanner(buf), cfg: cfg}
}

// WithScopes seeds a precomputed macro-scope result, letting a caller that
// classifies many characters in one pass derive the scopes exactly once.
func (c *Classifier) WithScopes(r macroscope.Result) *Classifier {
	c.scopes = r
	return c
}

func (c *Classifier) macroScopes() macroscope.Result {
	if !c.scopes.Computed() {
		c.scopes = macroscope.NewTracker(c.buf).ScopeAll()
	}
	return c.scopes
}

func (c *Classifier) allRegions() []lexctx.Region {
	if !c.scanned {
		c.regions = c.sc.Regions(0, textbuf.Pos(c.buf.Len()))
		c.scanned = true
	}
	return c.regions
}

// IsLessThanOperator reports whether the `<` at pos is a comparison/shift
// operator rather than a generic-list opener.
func (c *Classifier) IsLessThanOperator(pos textbuf.Pos) bool {
	return c.isLtOperator(pos, 0)
}

func (c *Classifier) isLtOperator(pos textbuf.Pos, depth int) bool {
	if !c.cfg.MatchAngleBrackets {
		return true
	}
	// Shift and compound forms are never brackets.
	next := c.buf.Byte(pos + 1)
	if next == '<' || next == '=' || c.buf.Byte(pos-1) == '<' {
		return true
	}
	if c.stateAt(pos).InStringOrComment() {
		return true
	}
	// Inside a macro body the syntax is anyone's guess; mis-resolving an
	// angle there would corrupt bracket balance outside it.
	if c.macroScopes().Contains(pos) {
		return true
	}
	return !c.classify(c.rewindIrrelevant(pos), followAmbiguousOp, depth)
}

// IsClosingAngleBracket reports whether the `>` at pos closes a generic
// list. It walks the enclosing bracket structure forward from the nearest
// item start and checks that the innermost unmatched opener is a `<`.
func (c *Classifier) IsClosingAngleBracket(pos textbuf.Pos) bool {
	if !c.cfg.MatchAngleBrackets {
		return false
	}
	prev := c.buf.Byte(pos - 1)
	if prev == '-' || prev == '=' {
		return false // -> and => arrows
	}
	if c.buf.Byte(pos+1) == '=' && c.buf.Byte(pos-1) != '>' {
		return false // >=
	}
	if c.stateAt(pos).InStringOrComment() {
		return false
	}
	scopes := c.macroScopes()
	if scopes.Contains(pos) {
		return false
	}

	stack := c.bracketStack(c.itemStartBefore(pos), pos, scopes)
	return len(stack) > 0 && stack[len(stack)-1] == '<'
}

// bracketStack replays the bracket structure of [start, pos), treating `<`
// as an opener only when classified as one, and skipping strings, comments
// and macro bodies.
func (c *Classifier) bracketStack(start, pos textbuf.Pos, scopes macroscope.Result) []byte {
	var stack []byte
	regions := c.allRegions()
	for p := start; p < pos; {
		if reg, ok := regionContaining(regions, p); ok {
			p = reg.Span.End
			continue
		}
		if span, ok := scopeContaining(scopes, p); ok {
			p = span.End
			continue
		}
		switch b := c.buf.Byte(p); b {
		case '(', '[', '{':
			stack = append(stack, b)
		case ')', ']', '}':
			open := textbuf.MatchingOpen(b)
			// Pop any generic opener left unclosed inside the pair.
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top == open {
					break
				}
				if top != '<' {
					break
				}
			}
		case '<':
			if !c.isLtOperator(p, 1) {
				stack = append(stack, '<')
			}
		case '>':
			if c.buf.Byte(p-1) != '-' && c.buf.Byte(p-1) != '=' &&
				len(stack) > 0 && stack[len(stack)-1] == '<' {
				stack = stack[:len(stack)-1]
			}
		}
		p++
	}
	return stack
}

// classify reports whether the token ending just before end is a type or
// path reference (true) as opposed to part of an expression (false).
// Running out of tokens defaults to type context: a truncated prefix must
// still produce an answer, and "assume angle bracket" is the harmless one.
func (c *Classifier) classify(end textbuf.Pos, follow followKind, depth int) bool {
	if depth > maxClassifyDepth || end <= 0 {
		return true
	}
	ch := c.buf.Byte(end - 1)
	switch {
	case textbuf.IsIdentByte(ch):
		ident, span := c.buf.IdentEndingAt(end)
		if ident == "" {
			return false // numeric literal: a value
		}
		return c.classifyIdent(ident, span.Start, follow, depth)

	case ch == ')' || ch == ']':
		// Type-ness of a balanced pair is the type-ness of its content.
		if _, ok := c.matchBackward(end - 1); !ok {
			return false
		}
		return c.classify(c.rewindIrrelevant(end-1), follow, depth+1)

	case ch == '}':
		return false // block end; a new statement follows

	case ch == ':':
		if c.buf.Byte(end-2) == ':' {
			return true // path separator or turbofish
		}
		return c.classify(c.rewindIrrelevant(end-1), followColon, depth+1)

	case ch == '>':
		switch c.buf.Byte(end - 2) {
		case '-':
			return true // return type position
		case '=':
			return false // match arm body
		}
		return false

	case ch == '<':
		// Directly inside a generic list the elements are types.
		return !c.isLtOperator(end-1, depth+1)

	case ch == '&' || ch == '*' || ch == '-' || ch == '|':
		// Ambiguous prefix/binary operator: classify the operator itself
		// by what precedes it.
		p := end - 1
		for p > 0 && c.buf.Byte(p-1) == ch {
			p--
		}
		return c.classify(c.rewindIrrelevant(p), followAmbiguousOp, depth+1)

	case ch == '(' || ch == '[':
		// First element of a bracketed list: types inside a type tuple or
		// fn() signature, expressions inside a call or index.
		return c.classify(c.rewindIrrelevant(end-1), followOpenBrace, depth+1)

	case ch == '{':
		return false

	case ch == ',':
		// The list element context is decided by the enclosing opener.
		open, ok := c.unmatchedOpenerBefore(end-1, depth)
		if !ok {
			return false
		}
		if c.buf.Byte(open) == '<' {
			return !c.isLtOperator(open, depth+1)
		}
		if c.buf.Byte(open) == '{' {
			return false
		}
		return c.classify(c.rewindIrrelevant(open), followOpenBrace, depth+1)

	default:
		// Assignment, arithmetic, semicolon, string ends and everything
		// else precede expressions.
		return false
	}
}

func (c *Classifier) classifyIdent(ident string, start textbuf.Pos, follow followKind, depth int) bool {
	switch {
	case expressionKeywords[ident]:
		return false
	case typeKeywords[ident]:
		return true
	case primitiveTypes[ident]:
		return true
	case ident == "for":
		// `impl Trait for Name<..>` is type context; a for-loop head is
		// not. The impl keyword is findable without crossing `{` or `;`.
		return c.implBefore(start)
	}
	switch follow {
	case followColon:
		// A name directly before a colon binds a value; what follows the
		// colon is its type.
		return true
	case followOpenBrace:
		// A plain name directly before `(` or `[` is a call or index.
		return false
	default:
		return c.classify(c.rewindIrrelevant(start), followIdent, depth+1)
	}
}

// implBefore scans backward from pos for an `impl` keyword within the same
// item, giving up at `{`, `}` or `;`.
func (c *Classifier) implBefore(pos textbuf.Pos) bool {
	regions := c.allRegions()
	p := pos
	for p > 0 {
		if reg, ok := regionContaining(regions, p-1); ok {
			p = reg.Span.Start
			continue
		}
		ch := c.buf.Byte(p - 1)
		if ch == '{' || ch == '}' || ch == ';' {
			return false
		}
		if textbuf.IsIdentByte(ch) {
			ident, span := c.buf.IdentEndingAt(p)
			if ident == "impl" {
				return true
			}
			p = span.Start
			continue
		}
		p--
	}
	return false
}

// rewindIrrelevant skips whitespace and comments backward and returns the
// exclusive end of the preceding token.
func (c *Classifier) rewindIrrelevant(p textbuf.Pos) textbuf.Pos {
	regions := c.allRegions()
	for {
		q := c.buf.SkipSpaceBack(p)
		if q > 0 {
			if reg, ok := regionContaining(regions, q-1); ok &&
				(reg.Kind == lexctx.LineComment || reg.Kind == lexctx.BlockComment) {
				p = reg.Span.Start
				continue
			}
		}
		return q
	}
}

// matchBackward finds the opener balancing the closer at close, skipping
// strings and comments. Unbalanced text yields false, never an error.
func (c *Classifier) matchBackward(close textbuf.Pos) (textbuf.Pos, bool) {
	closer := c.buf.Byte(close)
	opener := textbuf.MatchingOpen(closer)
	regions := c.allRegions()
	depth := 0
	for p := close; p >= 0; {
		if reg, ok := regionContaining(regions, p); ok {
			p = reg.Span.Start - 1
			continue
		}
		switch c.buf.Byte(p) {
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

// unmatchedOpenerBefore walks backward from pos to the innermost bracket
// opener left unclosed, skipping balanced pairs.
func (c *Classifier) unmatchedOpenerBefore(pos textbuf.Pos, depth int) (textbuf.Pos, bool) {
	regions := c.allRegions()
	counts := map[byte]int{}
	for p := pos - 1; p >= 0; p-- {
		if reg, ok := regionContaining(regions, p); ok {
			p = reg.Span.Start
			continue
		}
		switch b := c.buf.Byte(p); b {
		case ')', ']', '}':
			counts[textbuf.MatchingOpen(b)]++
		case '(', '[', '{':
			if counts[b] == 0 {
				return p, true
			}
			counts[b]--
		case '<':
			if counts['<'] > 0 {
				counts['<']--
			} else if !c.isLtOperator(p, depth+1) {
				return p, true
			}
		case '>':
			if c.buf.Byte(p-1) != '-' && c.buf.Byte(p-1) != '=' {
				counts['<']++
			}
		}
	}
	return 0, false
}

func (c *Classifier) stateAt(pos textbuf.Pos) lexctx.State {
	regions := c.allRegions()
	if reg, ok := regionContaining(regions, pos); ok {
		return lexctx.State{Kind: reg.Kind, Doc: reg.Doc, Start: reg.Span.Start}
	}
	return lexctx.State{Kind: lexctx.Code, Start: -1}
}

// itemStartBefore returns the start of the last line at or before pos that
// begins a top-level item, the anchor for bracket-structure replay.
func (c *Classifier) itemStartBefore(pos textbuf.Pos) textbuf.Pos {
	line := c.buf.LineOf(pos)
	regions := c.allRegions()
	for l := line; l >= 0; l-- {
		start := c.buf.LineStart(l)
		if _, ok := regionContaining(regions, start); ok {
			continue
		}
		b := c.buf.Byte(start)
		if textbuf.IsIdentByte(b) || b == '#' {
			return start
		}
	}
	return 0
}

func regionContaining(regions []lexctx.Region, p textbuf.Pos) (lexctx.Region, bool) {
	for _, reg := range regions {
		if reg.Span.Contains(p) {
			return reg, true
		}
	}
	return lexctx.Region{}, false
}

func scopeContaining(r macroscope.Result, p textbuf.Pos) (textbuf.Span, bool) {
	for _, s := range r.Spans() {
		if s.Contains(p) {
			return s, true
		}
	}
	return textbuf.Span{}, false
}
