package textbuf

import (
	"sort"
	"strings"
)

// Pos is an absolute byte offset into a Buffer. Offsets are stable for the
// duration of one analysis pass; a full-text replacement invalidates them.
type Pos int

// Span is a half-open [Start, End) byte range.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) Contains(p Pos) bool {
	return p >= s.Start && p < s.End
}

func (s Span) Len() int {
	return int(s.End - s.Start)
}

// Buffer is an immutable snapshot of document text. All analyses read it by
// position; none of them mutate it.
type Buffer struct {
	name       string
	src        string
	lineStarts []Pos
}

func New(name, src string) *Buffer {
	b := &Buffer{name: name, src: src}
	b.lineStarts = append(b.lineStarts, 0)
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			b.lineStarts = append(b.lineStarts, Pos(i+1))
		}
	}
	return b
}

func (b *Buffer) Name() string { return b.name }
func (b *Buffer) Text() string { return b.src }
func (b *Buffer) Len() int     { return len(b.src) }

// Byte returns the byte at p, or 0 when p is out of range.
func (b *Buffer) Byte(p Pos) byte {
	if p < 0 || int(p) >= len(b.src) {
		return 0
	}
	return b.src[p]
}

func (b *Buffer) Slice(s Span) string {
	start, end := s.Start, s.End
	if start < 0 {
		start = 0
	}
	if int(end) > len(b.src) {
		end = Pos(len(b.src))
	}
	if start >= end {
		return ""
	}
	return b.src[start:end]
}

func (b *Buffer) LineCount() int {
	return len(b.lineStarts)
}

// LineStart returns the position of the first byte of the 0-based line.
func (b *Buffer) LineStart(line int) Pos {
	if line < 0 {
		return 0
	}
	if line >= len(b.lineStarts) {
		return Pos(len(b.src))
	}
	return b.lineStarts[line]
}

// LineEnd returns the position just past the last content byte of the line,
// excluding the newline.
func (b *Buffer) LineEnd(line int) Pos {
	if line < 0 {
		return 0
	}
	if line+1 < len(b.lineStarts) {
		return b.lineStarts[line+1] - 1
	}
	return Pos(len(b.src))
}

func (b *Buffer) LineText(line int) string {
	return b.Slice(Span{b.LineStart(line), b.LineEnd(line)})
}

// LineOf returns the 0-based line containing p.
func (b *Buffer) LineOf(p Pos) int {
	if p < 0 {
		return 0
	}
	n := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > p
	})
	return n - 1
}

// ColumnOf returns the 0-based byte column of p within its line.
func (b *Buffer) ColumnOf(p Pos) int {
	return int(p - b.LineStart(b.LineOf(p)))
}

// Indentation returns the leading whitespace width of the line, counting a
// tab as a single column. Analyses emit spaces only, so this is exact for
// text they produced themselves.
func (b *Buffer) Indentation(line int) int {
	text := b.LineText(line)
	for i := 0; i < len(text); i++ {
		if text[i] != ' ' && text[i] != '\t' {
			return i
		}
	}
	return len(text)
}

// FirstNonSpace returns the position of the first non-whitespace byte of the
// line and true, or the line end and false for a blank line.
func (b *Buffer) FirstNonSpace(line int) (Pos, bool) {
	start, end := b.LineStart(line), b.LineEnd(line)
	for p := start; p < end; p++ {
		c := b.src[p]
		if c != ' ' && c != '\t' {
			return p, true
		}
	}
	return end, false
}

// IsBlankLine reports whether the line holds only whitespace.
func (b *Buffer) IsBlankLine(line int) bool {
	_, ok := b.FirstNonSpace(line)
	return !ok
}

func IsIdentByte(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

func IsSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// IdentEndingAt returns the identifier whose last byte sits just before end,
// with no intervening whitespace, or "" when end is not preceded by one.
func (b *Buffer) IdentEndingAt(end Pos) (string, Span) {
	p := end
	for p > 0 && IsIdentByte(b.Byte(p-1)) {
		p--
	}
	if p == end {
		return "", Span{end, end}
	}
	// A leading digit means a numeric literal, not an identifier.
	if c := b.Byte(p); c >= '0' && c <= '9' {
		return "", Span{end, end}
	}
	return b.Slice(Span{p, end}), Span{p, end}
}

// SkipSpaceBack returns the position just after the last non-whitespace byte
// at or before p (exclusive bound). Returns 0 when only whitespace precedes.
func (b *Buffer) SkipSpaceBack(p Pos) Pos {
	for p > 0 && IsSpaceByte(b.Byte(p-1)) {
		p--
	}
	return p
}

// SkipSpaceForward returns the first position >= p holding a non-whitespace
// byte, or the buffer end.
func (b *Buffer) SkipSpaceForward(p Pos) Pos {
	for int(p) < len(b.src) && IsSpaceByte(b.src[p]) {
		p++
	}
	return p
}

// HasPrefixAt reports whether the buffer text at p begins with s.
func (b *Buffer) HasPrefixAt(p Pos, s string) bool {
	if p < 0 || int(p)+len(s) > len(b.src) {
		return false
	}
	return strings.HasPrefix(b.src[p:], s)
}

// MatchingOpen returns the opening bracket byte for a closer.
func MatchingOpen(close byte) byte {
	switch close {
	case ')':
		return '('
	case ']':
		return '['
	case '}':
		return '{'
	case '>':
		return '<'
	}
	return 0
}

// MatchingClose returns the closing bracket byte for an opener.
func MatchingClose(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return 0
}
