// Package cli implements the rust-mode command line: reindenting, external
// formatting, lexical checking, and compiler-output location extraction.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mookid/rust-mode/internal/config"
)

var cfg *config.Config

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rust-mode",
		Short:         "Language-aware editing support for Rust source files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cmd.Flags().GetString("config-dir")
			if err != nil {
				return err
			}
			cfg, err = config.Load(dir)
			return err
		},
	}
	root.PersistentFlags().String("config-dir", "", "directory holding .rust-mode.yaml")

	root.AddCommand(newIndentCmd())
	root.AddCommand(newFmtCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newLocateCmd())
	return root
}
