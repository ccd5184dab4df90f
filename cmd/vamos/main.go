// ABOUTME: Entry point for the vamos CLI.
// ABOUTME: Invokes the root Cobra command and exits non-zero on error.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	err := rootCmd.Execute()
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
