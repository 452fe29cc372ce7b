// Command feedstore runs a server exposing append-only, cryptographically
// keyed feed logs over a pluggable storage backend.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/feedstore/cmd/feedstore/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
