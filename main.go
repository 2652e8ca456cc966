package main

import (
	"os"

	"github.com/shotbox/shotbox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
