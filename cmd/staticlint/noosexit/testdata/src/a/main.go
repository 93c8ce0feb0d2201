package main

import (
	"os"
	system "os"
)

func exit(code int) {
	os.Exit(code)
}

func main() {
	defer func() {
		os.Exit(3) // want "avoid using os.Exit in main.main"
	}()

	if len(os.Args) > 2 {
		exit(2)
	}

	if len(os.Args) > 1 {
		system.Exit(1) // want "avoid using os.Exit in main.main"
	}

	os.Exit(0) // want "avoid using os.Exit in main.main"
}
