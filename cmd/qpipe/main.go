// Command qpipe rewrites, compiles and fuzzes query trees against a CUE
// entity model.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/querypipe/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "qpipe:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
