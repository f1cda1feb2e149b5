// Package main is the entry point for the geotask CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"geotask/internal/cli"
	"geotask/internal/commands"
)

func main() {
	// Interrupt cancels the running command; watch stops its updates on it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, cli.OpenLocal)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}
