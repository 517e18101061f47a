package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	var exit exitError
	if errors.As(err, &exit) {
		// Diff severity rides on the exit code; the report was already
		// printed, so only surface an extra message when there is one.
		if exit.message != "" {
			fmt.Fprintln(os.Stderr, exit.message)
		}
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, "mcpdrift: "+err.Error())
	os.Exit(1)
}
