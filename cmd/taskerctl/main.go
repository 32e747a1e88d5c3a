package main

import (
	"os"

	"github.com/Broadband-Catalysts/tasker-sub001/cli/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
