// Package main is the entry point for the dirmcp CLI application.
//
// dirmcp exposes the regular files of a single directory, read-only, to
// Model Context Protocol clients over stdio, and optionally as a small JSON
// API over HTTP. Configuration is loaded from the YAML config file, DIRMCP_*
// environment variables and command-line flags, in that order.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dirmcp/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
