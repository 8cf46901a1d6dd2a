package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"jigpipe/internal/faults"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration problems to 1 and unrecoverable pipeline
// failures to 2.
func exitCode(err error) int {
	if class, ok := faults.ClassOf(err); ok && class == faults.Config {
		return 1
	}
	return 2
}
