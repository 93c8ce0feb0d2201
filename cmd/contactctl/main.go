// Command contactctl is the command-line client of the contact manager.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/patric-chuzhbe/contactkeeper/internal/client/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		stop()
		log.SetFlags(0)
		log.Fatal(err)
	}
}
