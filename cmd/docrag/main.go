package main

import (
	"fmt"
	"os"

	"docrag/cmd/docrag/commands"
	"docrag/internal/app"
)

// Set by the release build
var version = "dev"

func main() {
	app.Version = version

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
