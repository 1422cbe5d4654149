package main

import (
	"os"

	"trivia-rooms/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
