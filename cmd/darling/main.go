// Command darling runs the to-do assistant from a terminal: a text chat, a
// microphone session, the web UI server and direct task list edits.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
