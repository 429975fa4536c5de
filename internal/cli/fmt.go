package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mookid/rust-mode/internal/rustfmt"
)

func newFmtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Format files with the external formatter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime := time.Now()
			failed := false
			for _, path := range args {
				res, err := rustfmt.FormatFile(cmd.Context(), path, cfg)
				if err != nil {
					color.Red("%s: %v", path, err)
					failed = true
					continue
				}
				if res.Diagnostics != "" {
					fmt.Fprint(cmd.ErrOrStderr(), res.Diagnostics)
				}
				if res.Changed {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
			}
			if failed {
				color.Red("Formatting failed after %s", formatDuration(time.Since(startTime)))
				return fmt.Errorf("some files were not formatted")
			}
			color.Green("Formatted %d file(s) in %s", len(args), formatDuration(time.Since(startTime)))
			return nil
		},
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
