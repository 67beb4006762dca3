package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	providerfactory "chatbridge/internal/provider/factory"
	"chatbridge/internal/router"
)

const providersUsage = `Usage:
  chatbridge providers [--config <path>]

Flags:
  --config string   Path to YAML configuration file (built-in defaults when omitted)`

func providers(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, providersUsage)
	}

	var cfgPath string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse providers flags: %w", err)
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

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDEFAULT MODEL\tAVAILABLE\tMODELS")
	for _, st := range router.New(factory).Providers(ctx) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", st.Type, st.Name, st.DefaultModel, st.Available, strings.Join(st.SupportedModels, ","))
	}
	return tw.Flush()
}
