package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/civicwatch/incident-reports/internal/chain"
	"github.com/civicwatch/incident-reports/internal/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNotOwner = errors.New("signing account is not the contract owner")

func newVerifyCommand(g *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "verify ID REWARD",
		Short: "Mark report verified on-chain paying the reward to its reporter",
		Long: `verify sends a transaction marking the report verified and transferring REWARD,
given in the display unit of the chain (GAS or ETH), to the reporter. Only the
contract owner is allowed to do that; the account is checked against the
owner reported by the API before sending unless --force is set. The report list
is fetched again once the transaction is accepted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.env(cmd)
			if err != nil {
				return err
			}

			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid report ID %q", args[0])
			}

			reward, err := e.cfg.Chain.Units().Parse(args[1])
			if err != nil {
				return err
			}

			if reward.Sign() <= 0 {
				return errors.New("reward must be positive")
			}

			c, err := e.client()
			if err != nil {
				return err
			}

			w, err := chain.OpenWriter(cmd.Context(), e.cfg.Chain, e.cfg.Wallet, e.log)
			if err != nil {
				return fmt.Errorf("open %s chain: %w", e.cfg.Chain.Kind, err)
			}
			defer w.Close()

			return verify(cmd.Context(), verifyPrm{
				id:     id,
				reward: reward,
				force:  force,
				writer: w,
				api:    c,
				env:    e,
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "send the transaction even if the account doesn't look like the owner")

	return cmd
}

type verifyPrm struct {
	id     uint64
	reward *big.Int
	force  bool
	writer chain.Writer
	api    *client.Client
	env    *env
}

func verify(ctx context.Context, prm verifyPrm) error {
	var (
		e       = prm.env
		account = prm.writer.Account()
	)

	if _, err := fmt.Fprintf(e.out, "Connected Account: %s\n", account); err != nil {
		return err
	}

	// The contract checks the witness anyway, this only saves a failing
	// transaction.
	owner, err := prm.api.Owner(ctx)
	switch {
	case err != nil:
		e.log.Warn("can't check contract owner", zap.Error(err))
	case !chain.SameAccount(e.cfg.Chain.Kind, owner, account):
		if !prm.force {
			return fmt.Errorf("%w: owner is %s", errNotOwner, owner)
		}
		e.log.Warn("sending verification from non-owner account", zap.String("owner", owner))
	}

	units := e.cfg.Chain.Units()

	h, err := prm.writer.Verify(ctx, prm.id, prm.reward)
	if err != nil {
		return fmt.Errorf("verify report %d: %w", prm.id, err)
	}

	_, err = fmt.Fprintf(e.out, "Report %d verified with reward %s %s in transaction %s\n",
		prm.id, units.Format(prm.reward), units.Symbol, h)
	if err != nil {
		return err
	}

	err = list(ctx, prm.api, e)
	if errors.Is(err, client.ErrUnavailable) {
		return fmt.Errorf("transaction %s accepted but the report list can't be refreshed: %w", h, err)
	}

	return err
}
