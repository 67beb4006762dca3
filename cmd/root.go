package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"chatbridge/internal/config"
	"chatbridge/internal/logging"
)

const usage = `chatbridge talks to many LLM vendors through one chat contract.

Usage:
  chatbridge <command> [flags]

Commands:
  serve      Start the HTTP server
  providers  List providers and whether an API key is configured
  send       Send a single message to a provider or agent

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "providers":
		return providers(ctx, args[1:], os.Stdout)
	case "send":
		return send(ctx, args[1:], os.Stdout)
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}

// loadConfig reads path, or returns the validated defaults when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

// setupLogging installs the process logger and returns it.
func setupLogging(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	logger := logging.New(cfg, w)
	slog.SetDefault(logger)
	return logger
}
