// Command recount recomputes the derived quantity of every owned instance,
// one similarity group at a time. It repairs drift and backfills quantities
// after bulk imports. It is intended to be invoked by an external scheduler.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heartmarshall/beautyshelf-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if err := app.RunRecount(ctx); err != nil {
		slog.Error("recount failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
