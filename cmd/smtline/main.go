// Command smtline simulates SMT PCB production lines.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/smtline/smtline/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
