package main

import (
	"os"

	"github.com/drblury/abrflow/cmd/abrflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
