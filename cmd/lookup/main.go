package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kr1s57/vigilancex-lookup/internal/app"
	"github.com/kr1s57/vigilancex-lookup/internal/config"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
	"github.com/kr1s57/vigilancex-lookup/internal/usecase/lookup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "lookup",
		Short:        "Query geolocation and threat intelligence providers for an IP or URL",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log provider activity to stderr")

	root.AddCommand(newAnalyzeCmd(&verbose), newProvidersCmd(&verbose))
	return root
}

type analyzeFlags struct {
	force        bool
	basic        bool
	detailed     bool
	threatIntel  bool
	noBlocklists bool
}

// options turns tier flags into options; no tier flag selects every tier
func (f analyzeFlags) options() entity.Options {
	opts := entity.DefaultOptions()
	opts.ForceRefresh = f.force
	if f.basic || f.detailed || f.threatIntel {
		opts.IncludeBasic = f.basic
		opts.IncludeDetailed = f.detailed
		opts.IncludeThreatIntel = f.threatIntel
	}
	return opts
}

func newAnalyzeCmd(verbose *bool) *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <ip|url>",
		Short: "Analyze a key and print the result envelope as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*verbose)
			if err != nil {
				return err
			}
			if flags.noBlocklists {
				cfg.Blocklist.Enabled = false
			}

			service, err := buildService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			env, err := service.Analyze(cmd.Context(), args[0], flags.options())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), env)
		},
	}

	cmd.Flags().BoolVar(&flags.force, "force", false, "bypass the cache")
	cmd.Flags().BoolVar(&flags.basic, "basic", false, "query basic providers")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "query detailed providers")
	cmd.Flags().BoolVar(&flags.threatIntel, "threat-intel", false, "query threat intelligence providers")
	cmd.Flags().BoolVar(&flags.noBlocklists, "no-blocklists", false, "skip downloading blocklist feeds")

	return cmd
}

func newProvidersCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers and whether they are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*verbose)
			if err != nil {
				return err
			}
			// Listing never needs feed contents
			ingester, err := app.NewIngester(cfg, logger)
			if err != nil {
				return err
			}
			engines := app.NewEngines(cfg, logger, ingester)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ENGINE\tPROVIDER\tTIER\tKINDS\tCONFIGURED")
			for _, e := range []*lookup.Engine{engines.IP, engines.URL} {
				for _, p := range e.Providers() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%t\n", e.Name(), p.Name, p.Tier, p.Kinds, p.Configured)
				}
			}
			return w.Flush()
		},
	}
}

func setup(verbose bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	var out io.Writer = io.Discard
	if verbose {
		out = os.Stderr
	}
	return cfg, config.SetupLoggerTo(cfg, out), nil
}

// buildService wires a service without history or live feed; blocklists are loaded once
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*lookup.Service, error) {
	ingester, err := app.NewIngester(cfg, logger)
	if err != nil {
		return nil, err
	}
	if ingester != nil {
		refreshCtx, cancel := context.WithTimeout(ctx, time.Minute)
		ingester.Refresh(refreshCtx)
		cancel()
	}

	engines := app.NewEngines(cfg, logger, ingester)
	return lookup.NewService(lookup.ServiceConfig{
		IPEngine:  engines.IP,
		URLEngine: engines.URL,
		Logger:    logger,
	}), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
