// Package diag is a minimal stand-in for the inline fmt.Println/fmt.Printf
// debug traces used throughout the dispatch core's collaborators, behind a
// toggle so tests and production builds can silence it.
package diag

import (
	"fmt"
	"os"
)

// Enabled controls whether Printf writes anything. Off by default.
var Enabled = false

// Printf writes format/args to stderr if Enabled.
func Printf(format string, args ...interface{}) {
	if !Enabled {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

// Println writes args to stderr, space-separated with a trailing newline,
// if Enabled.
func Println(args ...interface{}) {
	if !Enabled {
		return
	}
	fmt.Fprintln(os.Stderr, args...)
}
