// NeoAlchemy - typed relations over a graph store
// Declare node classes and relations in YAML, run them against SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/jaxbulsara/NeoAlchemy/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
