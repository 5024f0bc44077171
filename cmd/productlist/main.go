package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"finitefield.org/store-admin/internal/admin/clipboard"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(Dependencies{Clipboard: clipboard.System{}})
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
