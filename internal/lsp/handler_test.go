package lsp_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/lsp"
)

type notification struct {
	method string
	params any
}

func testContext(sink *[]notification) *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			*sink = append(*sink, notification{method: method, params: params})
		},
	}
}

func openDocument(t *testing.T, handler *lsp.RustHandler, ctx *glsp.Context, uri, text string) {
	t.Helper()
	err := handler.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "rust",
			Version:    1,
			Text:       text,
		},
	})
	require.NoError(t, err)
}

func TestInitializeCapabilities(t *testing.T) {
	handler := lsp.NewRustHandler(config.Default())

	result, err := handler.Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)

	init, ok := result.(*protocol.InitializeResult)
	require.True(t, ok)
	require.NotNil(t, init.Capabilities.TextDocumentSync)
	require.NotNil(t, init.Capabilities.SemanticTokensProvider)
	require.NotNil(t, init.Capabilities.DocumentOnTypeFormattingProvider)
	assert.Equal(t, "\n", init.Capabilities.DocumentOnTypeFormattingProvider.FirstTriggerCharacter)
}

func TestDidOpenPublishesLexicalDiagnostics(t *testing.T) {
	handler := lsp.NewRustHandler(config.Default())
	var notes []notification
	ctx := testContext(&notes)

	openDocument(t, handler, ctx, "file:///tmp/broken.rs", "fn main() {\n    let s = \"open\n}\n")

	require.Len(t, notes, 1)
	assert.Equal(t, protocol.ServerTextDocumentPublishDiagnostics, notes[0].method)

	params, ok := notes[0].params.(*protocol.PublishDiagnosticsParams)
	require.True(t, ok)
	require.Len(t, params.Diagnostics, 1)
	assert.Contains(t, params.Diagnostics[0].Message, "unterminated string")
	assert.Equal(t, uint32(1), params.Diagnostics[0].Range.Start.Line)
}

func TestDidChangeClearsDiagnostics(t *testing.T) {
	handler := lsp.NewRustHandler(config.Default())
	var notes []notification
	ctx := testContext(&notes)

	openDocument(t, handler, ctx, "file:///tmp/a.rs", "fn main() {\n    let s = \"open\n}\n")
	require.Len(t, notes, 1)

	err := handler.TextDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///tmp/a.rs"},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: "fn main() {\n    let s = \"closed\";\n}\n"},
		},
	})
	require.NoError(t, err)

	require.Len(t, notes, 2)
	params := notes[1].params.(*protocol.PublishDiagnosticsParams)
	assert.Empty(t, params.Diagnostics)
}

func TestOnTypeFormattingReindentsLine(t *testing.T) {
	handler := lsp.NewRustHandler(config.Default())
	var notes []notification
	ctx := testContext(&notes)

	openDocument(t, handler, ctx, "file:///tmp/b.rs", "fn main() {\nlet x = 1;\n}\n")

	edits, err := handler.TextDocumentOnTypeFormatting(ctx, &protocol.DocumentOnTypeFormattingParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///tmp/b.rs"},
			Position:     protocol.Position{Line: 1, Character: 0},
		},
		Ch: "\n",
	})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "    ", edits[0].NewText)
	assert.Equal(t, uint32(1), edits[0].Range.Start.Line)
	assert.Equal(t, uint32(0), edits[0].Range.End.Character)
}

func TestOnTypeFormattingNoChangeNeeded(t *testing.T) {
	handler := lsp.NewRustHandler(config.Default())
	var notes []notification
	ctx := testContext(&notes)

	openDocument(t, handler, ctx, "file:///tmp/c.rs", "fn main() {\n    let x = 1;\n}\n")

	edits, err := handler.TextDocumentOnTypeFormatting(ctx, &protocol.DocumentOnTypeFormattingParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///tmp/c.rs"},
			Position:     protocol.Position{Line: 1, Character: 4},
		},
		Ch: "\n",
	})
	require.NoError(t, err)
	assert.Empty(t, edits)
}

func TestSemanticTokensFull(t *testing.T) {
	handler := lsp.NewRustHandler(config.Default())
	var notes []notification
	ctx := testContext(&notes)

	openDocument(t, handler, ctx, "file:///tmp/d.rs",
		"fn main() {\n    let v: Vec<i32> = Vec::new();\n}\n")

	tokens, err := handler.TextDocumentSemanticTokensFull(ctx, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///tmp/d.rs"},
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)
	require.NotEmpty(t, tokens.Data)

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err)
	require.NotEmpty(t, decoded)

	assertToken(t, &decoded[0], 0, 0, 2, "keyword", nil)    // fn
	assertToken(t, &decoded[1], 1, 4, 3, "keyword", nil)    // let
	assertToken(t, &decoded[2], 1, 11, 3, "type", nil)      // Vec
	assertToken(t, &decoded[3], 1, 14, 1, "operator", nil)  // <
	assertToken(t, &decoded[4], 1, 15, 3, "type", []string{"static"}) // i32
}

func TestUnknownDocument(t *testing.T) {
	handler := lsp.NewRustHandler(config.Default())

	_, err := handler.TextDocumentSemanticTokensFull(&glsp.Context{}, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///tmp/missing.rs"},
	})
	assert.Error(t, err)
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line,
			Char:      char,
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}

func assertToken(t *testing.T, token *DecodedToken, expectedLine, expectedChar, expectedLength uint32, expectedType string, expectedModifiers []string) {
	t.Helper()
	require.Equal(t, expectedLine, token.Line, "line mismatch (expected line %d)", expectedLine)
	require.Equal(t, expectedChar, token.Char, "char mismatch (expected char %d)", expectedChar)
	require.Equal(t, expectedLength, token.Length, "length mismatch")
	require.Equal(t, expectedType, token.Type, "type mismatch")
	require.ElementsMatch(t, expectedModifiers, token.Modifiers, "modifiers mismatch")
}
