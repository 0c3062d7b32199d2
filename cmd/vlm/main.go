// Package main is the entry point for the vlm CLI tool.
package main

import (
	"os"

	"github.com/vellum-notes/vellum/internal/cli"
)

func main() {
	err := cli.Execute()
	os.Exit(cli.ExitCode(err))
}
