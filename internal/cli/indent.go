package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/go-enry/go-enry/v2"
	"github.com/spf13/cobra"

	"github.com/mookid/rust-mode/internal/indent"
)

func newIndentCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "indent <file>...",
		Short: "Recompute the indentation of every line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := indentFile(cmd, path, write); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place instead of printing")
	return cmd
}

func indentFile(cmd *cobra.Command, path string, write bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ensureRust(path, src); err != nil {
		return err
	}

	out := indent.ReindentAll(path, string(src), cfg)
	if !write {
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}
	if out == string(src) {
		return nil
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return err
	}
	color.Green("reindented %s", path)
	return nil
}

// ensureRust rejects files whose detected language is not Rust, so a stray
// glob argument cannot get its indentation mangled.
func ensureRust(path string, src []byte) error {
	lang := enry.GetLanguage(path, src)
	if lang != "" && lang != "Rust" {
		return fmt.Errorf("%s: detected language %s, not Rust", path, lang)
	}
	return nil
}
