// Command pace runs a counseling session and browses opportunities from the
// terminal.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewApp().RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
