package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/mookid/rust-mode/internal/config"
	"github.com/mookid/rust-mode/internal/lsp"
)

const lsName = "rust-mode"

var handler protocol.Handler

func main() {
	// 1 = debug level, nil = default backend.
	commonlog.Configure(1, nil)

	cfg, err := config.Load("")
	if err != nil {
		log.Println("Falling back to default configuration:", err)
		cfg = config.Default()
	}

	rustHandler := lsp.NewRustHandler(cfg)

	handler = protocol.Handler{
		Initialize:                     rustHandler.Initialize,
		Initialized:                    rustHandler.Initialized,
		Shutdown:                       rustHandler.Shutdown,
		SetTrace:                       rustHandler.SetTrace,
		TextDocumentDidOpen:            rustHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           rustHandler.TextDocumentDidClose,
		TextDocumentDidChange:          rustHandler.TextDocumentDidChange,
		TextDocumentFormatting:         rustHandler.TextDocumentFormatting,
		TextDocumentOnTypeFormatting:   rustHandler.TextDocumentOnTypeFormatting,
		TextDocumentSemanticTokensFull: rustHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting rust-mode LSP server...")

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting rust-mode LSP server:", err)
		os.Exit(1)
	}
}
