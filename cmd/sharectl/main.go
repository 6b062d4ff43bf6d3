package main

import (
	"os"

	"github.com/negroni/relay/cmd/sharectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
