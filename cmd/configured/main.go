// Command configured validates catalogs of configurable definitions and
// resolves run configs through their configured layers.
package main

import (
	"os"

	"github.com/roach88/configured/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
