package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/mookid/rust-mode/internal/lexctx"
	"github.com/mookid/rust-mode/internal/textbuf"
)

// convertScanErrors transforms lexical scan errors into LSP diagnostics.
// Each error points at the opening delimiter of the unterminated token; the
// range covers the rest of that line so the squiggle is visible.
func convertScanErrors(buf *textbuf.Buffer, errs []lexctx.ScanError) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, scanErr := range errs {
		line := buf.LineOf(scanErr.Pos)
		col := buf.ColumnOf(scanErr.Pos)
		endCol := int(buf.LineEnd(line) - buf.LineStart(line))

		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(line), Character: uint32(col)},
				End:   protocol.Position{Line: uint32(line), Character: uint32(endCol)},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("rust-mode"),
			Message:  scanErr.Message,
		})
	}

	return diagnostics
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
