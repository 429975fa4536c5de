package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mookid/rust-mode/internal/compile"
)

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate [output-file]",
		Short: "Extract source locations from compiler or test output",
		Long: "Reads rustc or cargo output from the file argument or stdin and prints\n" +
			"one path:line:column per location found, primary locations first marked\n" +
			"with their message when one is present.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			locs, err := compile.Scan(in)
			if err != nil {
				return err
			}
			for _, loc := range locs {
				line := fmt.Sprintf("%s:%d", loc.Path, loc.Line)
				if loc.Column > 0 {
					line += fmt.Sprintf(":%d", loc.Column)
				}
				if loc.Message != "" {
					line += "\t" + loc.Message
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
