// The main package for the snapsite executable.
package main

import (
	"github.com/snapsite/snapsite/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
