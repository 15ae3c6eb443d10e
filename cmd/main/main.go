package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"rpa/runner/cmd/main/commands"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting RPA runner...")
	commands.ExecuteContext(ctx)
}
