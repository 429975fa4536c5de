// Package annotate applies low-level character classifications over a
// region: string delimiters and contents, comments, lifetimes, macro calls,
// and the angle-bracket verdicts that demote operator `<`/`>` to plain
// punctuation. Hosts feed these to bracket matching and highlighting.
package annotate

import (
	"github.com/mookid/rust-mode/internal/angle"
	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/lexctx"
	"github.com/mookid/rust-mode/internal/macroscope"
	"github.com/mookid/rust-mode/internal/textbuf"
)

type Kind int

const (
	KindKeyword Kind = iota
	KindPrimitiveType
	KindTypeName
	KindMacroCall
	KindLifetime
	KindStringDelim
	KindStringContent
	KindChar
	KindComment
	KindDocComment
	KindAngleOpen
	KindAngleClose
	// KindPunct marks a `<` or `>` resolved as an operator so generic
	// bracket matching must not pair it.
	KindPunct
)

type Annotation struct {
	Span textbuf.Span
	Kind Kind
}

var keywords = map[string]bool{
	"as": true, "async": true, "await": true, "box": true, "break": true,
	"const": true, "continue": true, "crate": true, "dyn": true,
	"else": true, "enum": true, "extern": true, "false": true, "fn": true,
	"for": true, "if": true, "impl": true, "in": true, "let": true,
	"loop": true, "match": true, "mod": true, "move": true, "mut": true,
	"pub": true, "ref": true, "return": true, "self": true, "static": true,
	"struct": true, "super": true, "trait": true, "true": true,
	"type": true, "union": true, "unsafe": true, "use": true,
	"where": true, "while": true, "yield": true,
}

var primitives = map[string]bool{
	"bool": true, "char": true, "str": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true,
	"isize": true, "usize": true, "f32": true, "f64": true,
}

var stdTypes = map[string]bool{
	"String": true, "Vec": true, "Option": true, "Result": true,
	"Box": true, "Rc": true, "Arc": true, "Cell": true, "RefCell": true,
	"HashMap": true, "HashSet": true, "BTreeMap": true, "BTreeSet": true,
	"Some": true, "None": true, "Ok": true, "Err": true, "Self": true,
}

// Region computes all annotations for span in a single pass: the macro
// scopes are derived once and shared by every angle decision, never
// re-derived per character.
func Region(buf *textbuf.Buffer, cfg *config.Config, span textbuf.Span) []Annotation {
	if span.End > textbuf.Pos(buf.Len()) {
		span.End = textbuf.Pos(buf.Len())
	}
	sc := lexctx.NewScanner(buf)
	regions := sc.Regions(span.Start, span.End)
	scopes := macroscope.NewTracker(buf).Scope(span.Start, span.End)
	cls := angle.New(buf, cfg).WithScopes(scopes)

	var anns []Annotation
	var stack []byte // unclosed openers, `<` interleaved with (, [ and {

	p := span.Start
	for p < span.End {
		if reg, ok := regionAt(regions, p); ok {
			anns = append(anns, regionAnnotations(buf, reg)...)
			p = reg.Span.End
			continue
		}
		c := buf.Byte(p)
		switch {
		case textbuf.IsIdentByte(c):
			end := p
			for int(end) < buf.Len() && textbuf.IsIdentByte(buf.Byte(end)) {
				end++
			}
			word := buf.Slice(textbuf.Span{Start: p, End: end})
			if kind, ok := identKind(buf, word, end); ok {
				anns = append(anns, Annotation{Span: textbuf.Span{Start: p, End: end}, Kind: kind})
			}
			p = end
		case c == '\'':
			end := p + 1
			for int(end) < buf.Len() && textbuf.IsIdentByte(buf.Byte(end)) {
				end++
			}
			if end > p+1 {
				anns = append(anns, Annotation{Span: textbuf.Span{Start: p, End: end}, Kind: KindLifetime})
			}
			p = end
		case c == '<':
			kind := KindPunct
			if !cls.IsLessThanOperator(p) {
				kind = KindAngleOpen
				stack = append(stack, c)
			}
			anns = append(anns, Annotation{Span: textbuf.Span{Start: p, End: p + 1}, Kind: kind})
			p++
		case c == '>':
			kind := KindPunct
			prev := buf.Byte(p - 1)
			if prev != '-' && prev != '=' && len(stack) > 0 && stack[len(stack)-1] == '<' {
				kind = KindAngleClose
				stack = stack[:len(stack)-1]
			}
			anns = append(anns, Annotation{Span: textbuf.Span{Start: p, End: p + 1}, Kind: kind})
			p++
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, c)
			p++
		case c == ')' || c == ']' || c == '}':
			// Pop to the matching opener, dropping generic openers left
			// dangling inside it; `Result<(), E>` keeps its `<` open across
			// the inner pair.
			open := textbuf.MatchingOpen(c)
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top == open {
					break
				}
			}
			p++
		default:
			p++
		}
	}
	return anns
}

func identKind(buf *textbuf.Buffer, word string, end textbuf.Pos) (Kind, bool) {
	if buf.Byte(end) == '!' && buf.Byte(end+1) != '=' {
		return KindMacroCall, true
	}
	if keywords[word] {
		return KindKeyword, true
	}
	if primitives[word] {
		return KindPrimitiveType, true
	}
	if stdTypes[word] || (word[0] >= 'A' && word[0] <= 'Z') {
		return KindTypeName, true
	}
	return 0, false
}

// regionAnnotations splits a string into delimiters and content; a raw
// string's interior is plain content, its escape-like characters carry no
// meaning.
func regionAnnotations(buf *textbuf.Buffer, reg lexctx.Region) []Annotation {
	switch reg.Kind {
	case lexctx.LineComment, lexctx.BlockComment:
		kind := KindComment
		if reg.Doc {
			kind = KindDocComment
		}
		return []Annotation{{Span: reg.Span, Kind: kind}}
	case lexctx.Char:
		return []Annotation{{Span: reg.Span, Kind: KindChar}}
	case lexctx.String:
		return stringParts(reg, 1, 1)
	case lexctx.RawString:
		// Opening delimiter: optional 'b', 'r', fence hashes, quote.
		open := 2 + reg.Fence
		if buf.Byte(reg.Span.Start) == 'b' {
			open++
		}
		return stringParts(reg, open, 1+reg.Fence)
	}
	return nil
}

func stringParts(reg lexctx.Region, openLen, closeLen int) []Annotation {
	start, end := reg.Span.Start, reg.Span.End
	if !reg.Terminated {
		closeLen = 0
	}
	if reg.Span.Len() <= openLen+closeLen {
		return []Annotation{{Span: reg.Span, Kind: KindStringDelim}}
	}
	anns := []Annotation{
		{Span: textbuf.Span{Start: start, End: start + textbuf.Pos(openLen)}, Kind: KindStringDelim},
		{Span: textbuf.Span{Start: start + textbuf.Pos(openLen), End: end - textbuf.Pos(closeLen)}, Kind: KindStringContent},
	}
	if closeLen > 0 {
		anns = append(anns, Annotation{Span: textbuf.Span{Start: end - textbuf.Pos(closeLen), End: end}, Kind: KindStringDelim})
	}
	return anns
}

func regionAt(regions []lexctx.Region, p textbuf.Pos) (lexctx.Region, bool) {
	for _, reg := range regions {
		if reg.Span.Contains(p) {
			return reg, true
		}
	}
	return lexctx.Region{}, false
}
