package main

import (
	"os"

	"github.com/existflow/lockin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
