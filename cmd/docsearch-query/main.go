// Package main provides the entry point for the docsearch-query CLI.
package main

import (
	"os"

	"github.com/mia-cx/docsearch/cmd/docsearch-query/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
