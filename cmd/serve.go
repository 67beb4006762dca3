package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	providerfactory "chatbridge/internal/provider/factory"
	"chatbridge/internal/router"
	"chatbridge/internal/server"
)

const serveUsage = `Usage:
  chatbridge serve [--config <path>] [--port <port>]

Flags:
  --config string   Path to YAML configuration file (built-in defaults when omitted)
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	logger := setupLogging(cfg.Logging, os.Stderr)

	factory, err := providerfactory.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	rt := router.New(factory)

	srv, err := server.New(cfg, rt, logger)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
