package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mookid/rust-mode/internal/lexctx"
	"github.com/mookid/rust-mode/internal/textbuf"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Report unterminated strings and comments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasErrors := false
			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				buf := textbuf.New(path, string(src))
				for _, scanErr := range lexctx.NewScanner(buf).Check() {
					fmt.Fprint(cmd.OutOrStdout(), formatScanError(buf, scanErr))
					hasErrors = true
				}
			}
			if hasErrors {
				return fmt.Errorf("lexical errors found")
			}
			color.Green("No lexical errors")
			return nil
		},
	}
}

func formatScanError(buf *textbuf.Buffer, scanErr lexctx.ScanError) string {
	line := buf.LineOf(scanErr.Pos)
	col := buf.ColumnOf(scanErr.Pos)
	lineContent := buf.LineText(line)

	marker := strings.Repeat(" ", col) + "^"

	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	lineNumberWidth := len(fmt.Sprintf("%d", line+1))
	if lineNumberWidth < 3 {
		lineNumberWidth = 3
	}
	indent := strings.Repeat(" ", lineNumberWidth)

	return fmt.Sprintf(
		"%s: %s\n%s┌─ %s:%d:%d\n%s│\n%3d│%s\n%s│%s\n\n",
		red("error"),
		scanErr.Message,
		indent,
		buf.Name(), line+1, col+1,
		indent,
		line+1, lineContent,
		indent,
		bold(marker),
	)
}
