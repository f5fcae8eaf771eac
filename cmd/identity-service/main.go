package main

import (
	"context"
	"os/signal"
	"syscall"

	"carmarket/internal/cli"
	"carmarket/internal/shared/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.RunServices(ctx, config.Load(), "", cli.ServiceIdentity)
}
