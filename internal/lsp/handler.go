// Package lsp exposes the analyses over the Language Server Protocol so any
// LSP-capable editor can host them: on-type indentation, whole-document
// formatting through the external formatter, lexical diagnostics, and
// semantic tokens.
package lsp

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/mookid/rust-mode/internal/annotate"
	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/indent"
	"github.com/mookid/rust-mode/internal/lexctx"
	"github.com/mookid/rust-mode/internal/rustfmt"
	"github.com/mookid/rust-mode/internal/textbuf"
)

type document struct {
	content string
	version int32
}

// RustHandler implements the LSP server handlers for Rust buffers. Document
// content comes from the sync notifications, never from disk, so unsaved
// edits are analyzed too.
type RustHandler struct {
	mu    sync.RWMutex
	docs  map[string]*document
	cfg   *config.Config
	cache *gocache.Cache
}

func NewRustHandler(cfg *config.Config) *RustHandler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &RustHandler{
		docs:  make(map[string]*document),
		cfg:   cfg,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Initialize responds to the client's initialize request and advertises the
// server's capabilities.
func (h *RustHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			DocumentFormattingProvider: ptrBool(true),
			DocumentOnTypeFormattingProvider: &protocol.DocumentOnTypeFormattingOptions{
				FirstTriggerCharacter: "\n",
				MoreTriggerCharacter:  []string{"}", ")", "]", "."},
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *RustHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("Rust LSP Initialized")
	return nil
}

func (h *RustHandler) Shutdown(ctx *glsp.Context) error {
	log.Println("Rust LSP Shutdown")
	return nil
}

func (h *RustHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen stores the opened buffer and publishes its lexical
// diagnostics.
func (h *RustHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Printf("Opened file: %s\n", params.TextDocument.URI)

	h.setDocument(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	h.publishDiagnostics(ctx, params.TextDocument.URI)
	return nil
}

// TextDocumentDidChange replaces the stored content. Sync is full-document,
// so every change event carries the whole text.
func (h *RustHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			h.setDocument(params.TextDocument.URI, c.Text, params.TextDocument.Version)
		case protocol.TextDocumentContentChangeEventWhole:
			h.setDocument(params.TextDocument.URI, c.Text, params.TextDocument.Version)
		}
	}
	h.publishDiagnostics(ctx, params.TextDocument.URI)
	return nil
}

func (h *RustHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Printf("Closed file: %s\n", params.TextDocument.URI)

	h.mu.Lock()
	delete(h.docs, params.TextDocument.URI)
	h.mu.Unlock()

	sendDiagnosticNotification(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

// TextDocumentFormatting runs the external formatter over the whole buffer
// and returns a single replace-everything edit. A failed run applies nothing
// and surfaces the formatter's own report.
func (h *RustHandler) TextDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	buf, ok := h.buffer(params.TextDocument.URI)
	if !ok {
		return nil, fmt.Errorf("unknown document %s", params.TextDocument.URI)
	}

	res, err := rustfmt.Format(context.Background(), buf, h.cfg)
	if err != nil {
		showMessage(ctx, protocol.MessageTypeError, err.Error())
		return nil, nil
	}
	if res.Diagnostics != "" {
		showMessage(ctx, protocol.MessageTypeWarning, res.Diagnostics)
	}
	if !res.Changed {
		return nil, nil
	}
	return []protocol.TextEdit{{
		Range:   wholeDocumentRange(buf),
		NewText: res.Output,
	}}, nil
}

// TextDocumentOnTypeFormatting reindents the line the cursor is on.
func (h *RustHandler) TextDocumentOnTypeFormatting(ctx *glsp.Context, params *protocol.DocumentOnTypeFormattingParams) ([]protocol.TextEdit, error) {
	buf, ok := h.buffer(params.TextDocument.URI)
	if !ok {
		return nil, fmt.Errorf("unknown document %s", params.TextDocument.URI)
	}
	line := int(params.Position.Line)
	if line >= buf.LineCount() {
		return nil, nil
	}

	e := indent.New(buf, h.cfg)
	col, applicable := e.LineEdit(line)
	cur := buf.Indentation(line)
	if !applicable || col == cur {
		return nil, nil
	}
	return []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line), Character: 0},
			End:   protocol.Position{Line: uint32(line), Character: uint32(cur)},
		},
		NewText: strings.Repeat(" ", col),
	}}, nil
}

// TextDocumentSemanticTokensFull classifies the whole document. Results are
// cached per document version because annotation derives macro scopes and
// angle verdicts for every position.
func (h *RustHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	buf, version, ok := h.bufferVersion(params.TextDocument.URI)
	if !ok {
		return nil, fmt.Errorf("unknown document %s", params.TextDocument.URI)
	}

	key := fmt.Sprintf("%s#%d", params.TextDocument.URI, version)
	if cached, ok := h.cache.Get(key); ok {
		return cached.(*protocol.SemanticTokens), nil
	}

	anns := annotate.Region(buf, h.cfg, textbuf.Span{Start: 0, End: textbuf.Pos(buf.Len())})
	tokens := annotationTokens(buf, anns)

	var data []uint32
	var prevLine, prevStart uint32
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))
		prevLine = token.Line
		prevStart = token.StartChar
	}

	result := &protocol.SemanticTokens{Data: data}
	h.cache.SetDefault(key, result)
	return result, nil
}

func (h *RustHandler) setDocument(uri, content string, version int32) {
	h.mu.Lock()
	h.docs[uri] = &document{content: content, version: version}
	h.mu.Unlock()
}

func (h *RustHandler) buffer(uri string) (*textbuf.Buffer, bool) {
	buf, _, ok := h.bufferVersion(uri)
	return buf, ok
}

func (h *RustHandler) bufferVersion(uri string) (*textbuf.Buffer, int32, bool) {
	h.mu.RLock()
	doc, ok := h.docs[uri]
	h.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	name := uri
	if path, err := uriToPath(uri); err == nil {
		name = path
	}
	return textbuf.New(name, doc.content), doc.version, true
}

func (h *RustHandler) publishDiagnostics(ctx *glsp.Context, uri string) {
	buf, ok := h.buffer(uri)
	if !ok {
		return
	}
	errs := lexctx.NewScanner(buf).Check()
	sendDiagnosticNotification(ctx, uri, convertScanErrors(buf, errs))
}

func wholeDocumentRange(buf *textbuf.Buffer) protocol.Range {
	last := buf.LineCount() - 1
	endCol := buf.LineEnd(last) - buf.LineStart(last)
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: uint32(last), Character: uint32(endCol)},
	}
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) -> C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func showMessage(ctx *glsp.Context, kind protocol.MessageType, msg string) {
	ctx.Notify(protocol.ServerWindowShowMessage, &protocol.ShowMessageParams{
		Type:    kind,
		Message: msg,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
