// Command peersync runs one of two replicating peer services.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/peersync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
