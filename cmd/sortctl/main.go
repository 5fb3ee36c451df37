package main

import (
	"os"

	"github.com/gravitas-games/sortsys/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
