package main

import (
	"context"
	"fmt"

	"github.com/civicwatch/incident-reports/internal/api"
	"github.com/civicwatch/incident-reports/internal/chain"
	"github.com/civicwatch/incident-reports/internal/render"
	"github.com/civicwatch/incident-reports/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDumpCommand(g *globalFlags) *cobra.Command {
	var (
		policy  string
		origin  int64
		workers int
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Read every report directly from the contract",
		Long: `dump connects to the chain node configured by chain.* settings, prints the
contract owner and every report found under the selected enumeration policy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.env(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("policy") {
				e.cfg.Sync.Policy = policy
			}
			if cmd.Flags().Changed("origin") {
				e.cfg.Sync.Origin = origin
			}
			if cmd.Flags().Changed("workers") {
				e.cfg.Sync.Workers = workers
			}

			p, err := e.cfg.Sync.ParsePolicy()
			if err != nil {
				return err
			}

			port, err := chain.Open(cmd.Context(), e.cfg.Chain, e.log)
			if err != nil {
				return fmt.Errorf("open %s chain: %w", e.cfg.Chain.Kind, err)
			}
			defer port.Close()

			return dump(cmd.Context(), port, p, e)
		},
	}

	cmd.Flags().StringVar(&policy, "policy", report.PolicyNameBounded, "enumeration policy: bounded or probing")
	cmd.Flags().Int64Var(&origin, "origin", -1, "first report index, policy default if negative")
	cmd.Flags().IntVar(&workers, "workers", 1, "concurrent reads under bounded policy")

	return cmd
}

func dump(ctx context.Context, port chain.Port, p report.Policy, e *env) error {
	owner, err := port.Owner(ctx)
	if err != nil {
		return fmt.Errorf("read contract owner: %w", err)
	}

	snap, err := report.NewSynchronizer(port, report.Prm{
		Logger:  e.log,
		Workers: e.cfg.Sync.Workers,
	}).Synchronize(ctx, p)
	if err != nil {
		return err
	}

	units := e.cfg.Chain.Units()

	if e.opt.Format != render.FormatTable {
		return render.Sync(e.out, api.NewSyncResult(p, snap, units), e.opt)
	}

	if _, err = fmt.Fprintf(e.out, "Contract Owner: %s\n", owner); err != nil {
		return err
	}

	if len(snap.Records) == 0 {
		_, err = fmt.Fprintln(e.out, render.MsgNoReports)
	} else {
		err = render.Details(e.out, api.NewReports(snap.Records, units), e.opt)
	}
	if err != nil {
		return err
	}

	for _, f := range snap.Skipped(p) {
		e.log.Debug("report skipped", zap.Uint64("index", f.Index), zap.Error(f.Err))

		if _, err = fmt.Fprintf(e.out, "\nError fetching report %d: %v\n", f.Index, f.Err); err != nil {
			return err
		}
	}

	return nil
}
