// Package main provides the entry point for the replaytrace service and CLI.
package main

import (
	"os"

	"replaytrace/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
