package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/msgboard"
	"github.com/jpalmerr/msgboard/example/mockbackend"
)

func main() {
	// in-process message service (see mockbackend)
	mux := http.NewServeMux()
	mux.Handle("/message", mockbackend.New(slog.Default()))
	go func() {
		if err := http.ListenAndServe(":9501", mux); err != nil {
			slog.Error("mock backend error", "error", err)
		}
	}()

	console, err := msgboard.New(
		msgboard.WithServiceURL("ws://localhost:9501/message"),
		msgboard.WithAccount("7"),
		msgboard.WithContext(map[string]string{"gamespace": "1"}),
		msgboard.WithTitle("Messages (demo)"),
		msgboard.WithPort(8080),
		msgboard.WithPhaseCallback(func(ph msgboard.Phase) {
			slog.Info("console phase", "phase", ph.String())
		}),
	)
	if err != nil {
		slog.Error("failed to create console", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  msgboard demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser.")
	fmt.Println("  You are account 7. Send a message to user 7 to see it pushed back.")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := console.Start(ctx); err != nil {
		slog.Error("console error", "error", err)
		os.Exit(1)
	}
}
