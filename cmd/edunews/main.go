// Command edunews registers articles across the issuance, registry and
// identity ledgers and verifies them.
package main

import (
	"fmt"
	"os"

	"github.com/w3f/edunews/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.NewRootCommand()
	err := cmd.Execute()
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return cli.GetExitCode(err)
}
