package main

import (
	"os"

	"nexlearn-exam-client/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
