// Package main provides the entry point for the docsearch-build CLI.
package main

import (
	"os"

	"github.com/mia-cx/docsearch/cmd/docsearch-build/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
