// Package main is the entry point for the trizel CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/trizel-project/epistemic-engine/internal/cli"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := cli.NewRootCommand()
	root.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	err := root.Execute()
	if err != nil {
		// Command failures are already reported by the output formatter;
		// usage errors from cobra are not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
