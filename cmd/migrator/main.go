package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spendwise-io/spendx/app/migrator"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer cancel()

	app := migrator.Initialize(ctx)

	app.Start(ctx)
}
