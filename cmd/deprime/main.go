package main

import (
	"errors"
	"fmt"
	"os"

	"deprime/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// ExitErrors were already reported through the command's formatter;
		// anything else (flag parsing, usage) still needs printing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
