package main

import (
	"os"

	"github.com/rustyeddy/tob/cmd/tob/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
