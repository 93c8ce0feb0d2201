// Command contactkeeper serves the contact manager API.
package main

import (
	"log"

	"github.com/patric-chuzhbe/contactkeeper/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalf("failed to initialize app: %v", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		application.Close()
		log.Fatalf("application error: %v", err)
	}
}
