// Package main provides the switchyard CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tangentlab/switchyard/pkg/types"
)

// Exit codes: 0 success, 1 user error, 2 system error.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "switchyard:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps error classes to exit codes. Validation, conflict, and
// not-found errors are the user's to fix; everything else is a system error.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrConflict),
		errors.Is(err, types.ErrNamespaceNotEmpty),
		errors.Is(err, types.ErrNotFound):
		return exitUserError
	default:
		return exitSysError
	}
}
