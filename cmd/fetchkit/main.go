// Command fetchkit runs the demo admin API and talks to it through fetchkit
// resources.
package main

import (
	"os"

	"github.com/vango-dev/fetchkit/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}
