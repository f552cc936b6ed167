package main

import (
	"fmt"
	"os"

	"github.com/conneroisu/techviz/cmd"
	"github.com/conneroisu/techviz/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errors.FormatError(err))
		os.Exit(1)
	}
}
