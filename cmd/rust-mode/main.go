package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/mookid/rust-mode/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}
