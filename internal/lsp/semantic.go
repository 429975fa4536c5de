package lsp

import (
	"github.com/mookid/rust-mode/internal/annotate"
	"github.com/mookid/rust-mode/internal/textbuf"
)

// Semantic token types advertised in the server legend.
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"typeParameter",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"operator",
	"modifier",
	"string",
	"comment",
	"macro",
}

var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
	"static",
	"deprecated",
	"documentation",
}

// SemanticToken represents a single LSP semantic token entry.
// Line and StartChar are 0-based positions; TokenType is an index into
// SemanticTokenTypes and TokenModifiers a bitmask over SemanticTokenModifiers.
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

// annotationTokens lowers annotations to the legend. Operator angle brackets
// and string delimiters produce no token; the client's own punctuation
// rendering covers them. Spans crossing line boundaries are split because a
// wire token cannot span lines.
func annotationTokens(buf *textbuf.Buffer, anns []annotate.Annotation) []SemanticToken {
	var tokens []SemanticToken

	for _, ann := range anns {
		tokenType, modifiers, ok := legendEntry(ann.Kind)
		if !ok {
			continue
		}
		for _, part := range splitByLine(buf, ann.Span) {
			line := buf.LineOf(part.Start)
			tokens = append(tokens, SemanticToken{
				Line:           uint32(line),
				StartChar:      uint32(buf.ColumnOf(part.Start)),
				Length:         uint32(part.Len()),
				TokenType:      tokenType,
				TokenModifiers: modifiers,
			})
		}
	}

	return tokens
}

func legendEntry(kind annotate.Kind) (int, int, bool) {
	switch kind {
	case annotate.KindKeyword:
		return indexOf("keyword", SemanticTokenTypes), 0, true
	case annotate.KindPrimitiveType:
		return indexOf("type", SemanticTokenTypes), 1 << indexOf("static", SemanticTokenModifiers), true
	case annotate.KindTypeName:
		return indexOf("type", SemanticTokenTypes), 0, true
	case annotate.KindMacroCall:
		return indexOf("macro", SemanticTokenTypes), 0, true
	case annotate.KindLifetime:
		return indexOf("typeParameter", SemanticTokenTypes), 0, true
	case annotate.KindStringContent, annotate.KindChar:
		return indexOf("string", SemanticTokenTypes), 0, true
	case annotate.KindComment:
		return indexOf("comment", SemanticTokenTypes), 0, true
	case annotate.KindDocComment:
		return indexOf("comment", SemanticTokenTypes), 1 << indexOf("documentation", SemanticTokenModifiers), true
	case annotate.KindAngleOpen, annotate.KindAngleClose:
		return indexOf("operator", SemanticTokenTypes), 0, true
	}
	return 0, 0, false
}

func splitByLine(buf *textbuf.Buffer, span textbuf.Span) []textbuf.Span {
	var parts []textbuf.Span
	start := span.Start
	for start < span.End {
		end := buf.LineEnd(buf.LineOf(start))
		if end > span.End {
			end = span.End
		}
		if end > start {
			parts = append(parts, textbuf.Span{Start: start, End: end})
		}
		start = end + 1
	}
	return parts
}

// indexOf returns the index of a string in a slice, or 0 if not found.
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return 0
}
