package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmcdonald/savekeep/internal/cli"
)

// version is set via ldflags at build time: -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// No arguments launches the TUI; see cli.CLI.
	cli.New(version).Run(ctx)
}
