package main

import (
	"fmt"
	"os"

	"github.com/spherical/pdf2md/cmd/pdf2md/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
