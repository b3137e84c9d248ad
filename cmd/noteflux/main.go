// Package main provides the entry point for the noteflux CLI.
package main

import (
	"os"

	"github.com/noteflux/noteflux/cmd/noteflux/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
