package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	providerfactory "chatbridge/internal/provider/factory"
	"chatbridge/internal/router"
)

const sendUsage = `Usage:
  chatbridge send [--config <path>] (--provider <id> [--model <id>] | --agent <id>) <message>

Flags:
  --config   string  Path to YAML configuration file (built-in defaults when omitted)
  --provider string  Provider type, alias or name, e.g. openai, claude, n8n
  --model    string  Model to use; the provider default when omitted
  --agent    string  Agent id; mutually exclusive with --provider`

func send(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, sendUsage)
	}

	var cfgPath, providerID, model, agentID string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&providerID, "provider", "", "provider id")
	fs.StringVar(&model, "model", "", "model id")
	fs.StringVar(&agentID, "agent", "", "agent id")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse send flags: %w", err)
	}

	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		return errors.New("send command requires a message")
	}
	if (providerID == "") == (agentID == "") {
		return errors.New("send command requires exactly one of --provider or --agent")
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg.Logging, os.Stderr)

	factory, err := providerfactory.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	rt := router.New(factory)

	if agentID != "" {
		resp, _, err := rt.Agent(ctx, agentID, message, nil)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, resp.Content)
		return err
	}

	reply, _, err := rt.Message(ctx, providerID, message, model)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, reply)
	return err
}
