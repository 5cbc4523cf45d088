package main

import (
	"os"

	"github.com/jhoicas/facturador-sri/cmd/sri/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
