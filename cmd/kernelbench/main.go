package main

import (
	"os"

	"github.com/notargets/kernelbench/cmd/kernelbench/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
