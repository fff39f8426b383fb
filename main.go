package main

import (
	"os"

	"github.com/Lumos-Labs-HQ/flashseed/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
