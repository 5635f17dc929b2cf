package main

import (
	"os"

	"github.com/moolen/depscope/cmd/depscope/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
