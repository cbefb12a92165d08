package main

import (
	"os"

	"nullchat/cmd/nullchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
