package main

import (
	"os"

	"github.com/jask/creditofacil/cmd/creditofacil/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
