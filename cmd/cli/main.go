// Package main is the entry point for the tradein-engine CLI.
package main

import (
	"os"

	"tradein-engine/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
