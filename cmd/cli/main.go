// Package main is the entry point for the sandctl CLI.
// The CLI is the terminal tool for managing sandbox instances via the
// sandplane API.
package main

import (
	"os"

	"sandplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
