package main

import (
	"os"

	"github.com/solatis/smartlist/cmd/smartlist/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
