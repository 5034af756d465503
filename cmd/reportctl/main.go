// Package main provides reportctl, the command line client of the incident
// reports service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/civicwatch/incident-reports/internal/client"
	"github.com/civicwatch/incident-reports/internal/config"
	"github.com/civicwatch/incident-reports/internal/render"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time.
var Version = "dev"

type globalFlags struct {
	config  string
	apiURL  string
	output  string
	noColor bool
	wide    bool
	verbose bool
}

func main() {
	err := newRootCommand(os.Stdout).ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   "reportctl",
		Short: "Browse incident reports and verify them on-chain",
		Long: `reportctl lists reports served by reportd, dumps them directly from the
contract and lets the contract owner verify a report attaching a reward.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(out)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "", "path to YAML configuration file")
	pf.StringVar(&g.apiURL, "api", "", "reports API URL (overrides client.api_url)")
	pf.StringVarP(&g.output, "output", "o", render.FormatTable, "output format: table, json or yaml")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&g.wide, "wide", false, "print reporter addresses in full")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log diagnostics to stderr")

	cmd.AddCommand(
		newListCommand(&g),
		newDumpCommand(&g),
		newVerifyCommand(&g),
	)

	return cmd
}

// env is the state shared by subcommands.
type env struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer
	opt render.Options
}

func (g *globalFlags) env(cmd *cobra.Command) (*env, error) {
	if err := render.CheckFormat(g.output); err != nil {
		return nil, err
	}

	if g.output == "" {
		g.output = render.FormatTable
	}

	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}

	if g.apiURL != "" {
		cfg.Client.APIURL = g.apiURL
	}

	log := zap.NewNop()
	if g.verbose {
		cfg.Log.Level = "debug"
		log, err = cfg.Log.Build()
		if err != nil {
			return nil, err
		}
	}

	return &env{
		cfg: cfg,
		log: log,
		out: cmd.OutOrStdout(),
		opt: render.Options{
			Format:  g.output,
			Symbol:  cfg.Chain.Units().Symbol,
			NoColor: g.noColor,
			Wide:    g.wide,
		},
	}, nil
}

func (e *env) client() (*client.Client, error) {
	if err := e.cfg.Client.Validate(); err != nil {
		return nil, err
	}

	return client.New(client.Prm{
		URL:     e.cfg.Client.APIURL,
		Timeout: e.cfg.Client.Timeout,
		Logger:  e.log,
	})
}

func newListCommand(g *globalFlags) *cobra.Command {
	var diagnostics bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports served by the reports API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.env(cmd)
			if err != nil {
				return err
			}

			c, err := e.client()
			if err != nil {
				return err
			}

			if diagnostics {
				res, err := c.Sync(cmd.Context())
				if err != nil {
					return err
				}

				return render.Sync(e.out, res, e.opt)
			}

			return list(cmd.Context(), c, e)
		},
	}

	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "show indices that could not be read")

	return cmd
}

func list(ctx context.Context, c *client.Client, e *env) error {
	l, err := c.Reports(ctx)
	if err != nil {
		return err
	}

	if err := render.Reports(e.out, l.Reports, e.opt); err != nil {
		return err
	}

	if l.ReadFailures > 0 && e.opt.Format == render.FormatTable {
		_, err = fmt.Fprintf(e.out, "%d report(s) could not be read, run with --diagnostics for details.\n", l.ReadFailures)
	}

	return err
}
