// Package main is the entry point for rscctl.
package main

import (
	"fmt"
	"os"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/cli"
)

func main() {
	err := cli.Execute(cli.NewRootCommand())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
