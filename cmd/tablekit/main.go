// Package main is the tablekit command: browse, edit, back up and serve the
// tables of a relational database.
package main

import (
	"os"

	"github.com/leapstack-labs/tablekit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
