// Standalone mock message service for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockbackend
//
// Then in another terminal:
//
//	go run ./cmd/msgboard serve -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/msgboard/example/mockbackend"
)

func main() {
	fmt.Println("Mock message service starting on ws://localhost:9501/message")
	fmt.Println("Connections need a numeric ?account=")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	mux := http.NewServeMux()
	mux.Handle("/message", mockbackend.New(slog.Default()))

	if err := http.ListenAndServe(":9501", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
