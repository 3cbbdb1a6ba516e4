package main

import (
	"fmt"
	"os"

	"github.com/valksor/go-julesetup/cmd/julesetup/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
