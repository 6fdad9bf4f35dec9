// Package main provides the entry point for the ferrex CLI.
package main

import (
	"os"

	"github.com/cerplabs/ferrex/cmd/ferrex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
