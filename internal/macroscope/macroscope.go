// Package macroscope locates macro-invocation argument bodies. Bracket and
// angle disambiguation cannot be trusted inside a macro body, so every
// consumer first asks whether a position falls in one of these spans.
package macroscope

import (
	"github.com/mookid/rust-mode/internal/lexctx"
	"github.com/mookid/rust-mode/internal/textbuf"
)

// Result is a tri-state scan outcome. The zero value means "not computed",
// which callers must not conflate with a computed scan that found nothing.
type Result struct {
	computed bool
	spans    []textbuf.Span
}

// NotComputed is the absent-cache sentinel.
var NotComputed = Result{}

func (r Result) Computed() bool { return r.computed }

// Empty reports a completed scan that found no macro invocation at all.
func (r Result) Empty() bool { return r.computed && len(r.spans) == 0 }

func (r Result) Spans() []textbuf.Span { return r.spans }

// Contains reports whether p falls inside a macro body. A not-computed
// result contains nothing.
func (r Result) Contains(p textbuf.Pos) bool {
	for _, s := range r.spans {
		if s.Contains(p) {
			return true
		}
	}
	return false
}

type Tracker struct {
	buf *textbuf.Buffer
	sc  *lexctx.Scanner
}

func NewTracker(buf *textbuf.Buffer) *Tracker {
	return &Tracker{buf: buf, sc: lexctx.NewScanner(buf)}
}

// ScopeAll scans the whole buffer.
func (t *Tracker) ScopeAll() Result {
	return t.Scope(0, textbuf.Pos(t.buf.Len()))
}

// Scope scans [start, end) for macro invocations and returns their bracket
// spans, opener through closer inclusive. The start hint is first rewound to
// the nearest enclosing top-level construct so a macro already open at start
// is not missed. Unbalanced brackets never fail the scan; an unmatched
// opener simply yields no span.
func (t *Tracker) Scope(start, end textbuf.Pos) Result {
	if end > textbuf.Pos(t.buf.Len()) {
		end = textbuf.Pos(t.buf.Len())
	}
	if start < 0 {
		start = 0
	}
	start = t.rewindToItemStart(start)

	// Regions run to the buffer end because a body opened before `end` may
	// close past it, and the bracket match must keep skipping strings there.
	regions := t.sc.Regions(start, textbuf.Pos(t.buf.Len()))
	spans := []textbuf.Span{}
	for p := start; p < end; {
		if reg, ok := regionAt(regions, p); ok {
			p = reg.Span.End
			continue
		}
		if t.buf.Byte(p) != '!' {
			p++
			continue
		}
		if span, next, ok := t.captureInvocation(p, regions); ok {
			if span.End > start && span.Start < end {
				spans = append(spans, span)
			}
			p = next
			continue
		}
		p++
	}
	return Result{computed: true, spans: spans}
}

// captureInvocation matches the bang at p against the two invocation forms:
// ident!(...) with the bang abutting the identifier, and the macro-definition
// form macro_rules! name {...}. The abutting requirement is stricter than
// the grammar but keeps `if !cond` from reading as a macro call.
func (t *Tracker) captureInvocation(p textbuf.Pos, regions []lexctx.Region) (textbuf.Span, textbuf.Pos, bool) {
	ident, _ := t.buf.IdentEndingAt(p)
	if ident == "" {
		return textbuf.Span{}, 0, false
	}
	// `!=` is an operator, never an invocation.
	if t.buf.Byte(p+1) == '=' {
		return textbuf.Span{}, 0, false
	}

	open := t.buf.SkipSpaceForward(p + 1)
	if ident == "macro_rules" {
		// Definition form: the macro's own name sits between the bang and
		// the body bracket.
		name, _ := t.buf.IdentEndingAt(skipIdentForward(t.buf, open))
		if name == "" {
			return textbuf.Span{}, 0, false
		}
		open = t.buf.SkipSpaceForward(skipIdentForward(t.buf, open))
	}
	switch t.buf.Byte(open) {
	case '(', '[', '{':
	default:
		return textbuf.Span{}, 0, false
	}
	close, ok := t.matchForward(open, regions)
	if !ok {
		return textbuf.Span{}, 0, false
	}
	return textbuf.Span{Start: open, End: close + 1}, close + 1, true
}

// matchForward finds the closer balancing the opener at open, skipping
// string and comment regions. Returns false when the buffer ends first.
func (t *Tracker) matchForward(open textbuf.Pos, regions []lexctx.Region) (textbuf.Pos, bool) {
	opener := t.buf.Byte(open)
	closer := textbuf.MatchingClose(opener)
	depth := 0
	end := textbuf.Pos(t.buf.Len())
	for p := open; p < end; {
		if reg, ok := regionAt(regions, p); ok {
			p = reg.Span.End
			continue
		}
		switch t.buf.Byte(p) {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return p, true
			}
		}
		p++
	}
	return 0, false
}

// rewindToItemStart moves the hint back to the start of the last line at or
// before pos whose first column begins a top-level item.
func (t *Tracker) rewindToItemStart(pos textbuf.Pos) textbuf.Pos {
	line := t.buf.LineOf(pos)
	for l := line; l >= 0; l-- {
		c := t.buf.Byte(t.buf.LineStart(l))
		if textbuf.IsIdentByte(c) || c == '#' {
			return t.buf.LineStart(l)
		}
	}
	return 0
}

func regionAt(regions []lexctx.Region, p textbuf.Pos) (lexctx.Region, bool) {
	for _, reg := range regions {
		if reg.Span.Contains(p) {
			return reg, true
		}
	}
	return lexctx.Region{}, false
}

func skipIdentForward(buf *textbuf.Buffer, p textbuf.Pos) textbuf.Pos {
	for int(p) < buf.Len() && textbuf.IsIdentByte(buf.Byte(p)) {
		p++
	}
	return p
}
