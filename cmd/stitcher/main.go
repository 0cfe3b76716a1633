package main

import (
	"os"

	"github.com/0x5457/stitcher/cmd/stitcher/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
