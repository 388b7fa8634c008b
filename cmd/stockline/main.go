package main

import (
	"os"

	"github.com/stocklinehq/stockline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
