// Command careportal runs the care portal shell and drives the client session
// from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/medtrack/careportal/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
