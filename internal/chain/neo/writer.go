package neo

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/civicwatch/incident-reports/report"
	"github.com/civicwatch/incident-reports/rpc/reports"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

var errNoAccount = errors.New("no account in the wallet")

// WalletPrm groups parameters of the wallet signing verifications.
type WalletPrm struct {
	Path     string
	Password string
	// Account address, the first wallet account is used if empty.
	Address string
}

// Actor sends transactions and awaits their results.
type Actor interface {
	reports.Actor
	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

// Writer sends report verifications to the contract. It implements
// report.Verifier.
type Writer struct {
	log      *zap.Logger
	rpc      *rpcclient.Client
	act      Actor
	contract *reports.Contract
}

// DialWriter opens the wallet, connects to the Neo RPC server and returns
// Writer signing transactions with the wallet account.
func DialWriter(ctx context.Context, prm Prm, wp WalletPrm) (*Writer, error) {
	contract, err := ParseContract(prm.Contract)
	if err != nil {
		return nil, err
	}

	acc, err := openAccount(wp)
	if err != nil {
		return nil, err
	}

	c, err := rpcclient.New(ctx, prm.Endpoint, rpcclient.Options{
		DialTimeout:    prm.DialTimeout,
		RequestTimeout: prm.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init actor: %w", err)
	}

	w := NewWriter(act, contract, prm.Logger)
	w.rpc = c

	return w, nil
}

// NewWriter returns Writer sending transactions through the given actor.
func NewWriter(act Actor, contract util.Uint160, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}

	return &Writer{
		log:      log,
		act:      act,
		contract: reports.New(act, contract),
	}
}

// Account returns address of the signing account.
func (x *Writer) Account() string {
	return address.Uint160ToString(x.act.Sender())
}

// Verify implements report.Verifier. It pays the reward in GAS fractions to
// the contract and waits until the transaction is persisted.
func (x *Writer) Verify(ctx context.Context, id uint64, reward *big.Int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if reward == nil || reward.Sign() <= 0 {
		return "", fmt.Errorf("%w: reward must be positive", report.ErrTransactionFailed)
	}

	h, vub, err := x.contract.Verify(new(big.Int).SetUint64(id), reward)
	if err != nil {
		return "", fmt.Errorf("%w: send transaction: %w", report.ErrTransactionFailed, err)
	}

	x.log.Info("verification transaction sent",
		zap.Uint64("report", id), zap.Stringer("tx", h), zap.Uint32("vub", vub))

	res, err := x.act.Wait(h, vub, nil)
	if err != nil {
		return h.StringLE(), fmt.Errorf("%w: await transaction %s: %w", report.ErrTransactionFailed, h.StringLE(), err)
	}

	if res.VMState != vmstate.Halt {
		return h.StringLE(), fmt.Errorf("%w: transaction %s faulted: %s",
			report.ErrTransactionFailed, h.StringLE(), res.FaultException)
	}

	return h.StringLE(), nil
}

// Close closes underlying RPC connection if any.
func (x *Writer) Close() {
	if x.rpc != nil {
		x.rpc.Close()
	}
}

func openAccount(prm WalletPrm) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(prm.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}

	var acc *wallet.Account

	if prm.Address != "" {
		h, err := address.StringToUint160(prm.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid account address: %w", err)
		}

		acc = w.GetAccount(h)
		if acc == nil {
			return nil, fmt.Errorf("account %s not found in the wallet", prm.Address)
		}
	} else {
		if len(w.Accounts) == 0 {
			return nil, errNoAccount
		}

		acc = w.Accounts[0]
	}

	err = acc.Decrypt(prm.Password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account: %w", err)
	}

	return acc, nil
}
