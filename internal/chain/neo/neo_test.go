package neo

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/civicwatch/incident-reports/report"
	"github.com/civicwatch/incident-reports/tests"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type env struct {
	e        *neotest.Executor
	contract util.Uint160
	reporter neotest.Signer
	port     *Port
}

func newEnv(t *testing.T, n int) env {
	e := tests.NewExecutor(t)
	h := tests.DeployReports(t, e, util.Uint160{})
	reporter := e.NewAccount(t)

	inv := e.NewInvoker(h, reporter)
	for i := range n {
		inv.Invoke(t, i, "submitReport", reporter.ScriptHash(), "pothole", "Main St", "http://x/1.png")
	}

	return env{
		e:        e,
		contract: h,
		reporter: reporter,
		port:     New(tests.NewInvoker(t, e), h, zaptest.NewLogger(t)),
	}
}

func TestPort_GetReport(t *testing.T) {
	x := newEnv(t, 2)
	ctx := context.Background()

	rec, err := x.port.GetReport(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, rec.ID)
	require.Equal(t, address.Uint160ToString(x.reporter.ScriptHash()), rec.Reporter)
	require.Equal(t, "pothole", rec.Description)
	require.False(t, rec.Verified)
	require.Zero(t, rec.Reward.Sign())

	_, err = x.port.GetReport(ctx, 2)
	require.ErrorIs(t, err, report.ErrNotFound)

	n, err := x.port.ReportCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	owner, err := x.port.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, address.Uint160ToString(x.e.CommitteeHash), owner)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = x.port.GetReport(cctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPort_Synchronize(t *testing.T) {
	x := newEnv(t, 3)
	s := report.NewSynchronizer(x.port, report.Prm{Logger: zaptest.NewLogger(t)})

	snap, err := s.Synchronize(context.Background(), report.BoundedCount(0))
	require.NoError(t, err)
	require.Len(t, snap.Records, 3)
	require.Empty(t, snap.Failures)

	snap, err = s.Synchronize(context.Background(), report.Probing(1))
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)
	require.Len(t, snap.Failures, 1)
	require.Equal(t, report.FailureNotFound, snap.Failures[0].Kind)
	require.EqualValues(t, 3, snap.Failures[0].Index)
}

type faultInvoker struct{ err error }

func (x faultInvoker) Call(util.Uint160, string, ...any) (*result.Invoke, error) {
	return nil, x.err
}

func TestPort_TransportFault(t *testing.T) {
	errRPC := errors.New("connection refused")
	p := New(faultInvoker{errRPC}, util.Uint160{1}, nil)

	_, err := p.GetReport(context.Background(), 0)
	require.ErrorIs(t, err, errRPC)
	require.NotErrorIs(t, err, report.ErrNotFound)

	_, err = p.ReportCount(context.Background())
	require.ErrorIs(t, err, errRPC)
}

func TestParseContract(t *testing.T) {
	h := util.Uint160{1, 2, 3}

	for _, s := range []string{address.Uint160ToString(h), h.StringLE(), "0x" + h.StringLE()} {
		res, err := ParseContract(s)
		require.NoError(t, err)
		require.Equal(t, h, res)
	}

	_, err := ParseContract("not a contract")
	require.Error(t, err)
}

// chainActor sends transactions to the test chain signing them with the
// given signer.
type chainActor struct {
	*tests.Invoker

	t      testing.TB
	e      *neotest.Executor
	signer neotest.Signer
}

func (x *chainActor) SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error) {
	tx := x.e.NewInvoker(contract, x.signer).PrepareInvoke(x.t, method, params...)
	x.e.AddNewBlock(x.t, tx)
	return tx.Hash(), tx.ValidUntilBlock, nil
}

func (x *chainActor) Wait(h util.Uint256, _ uint32, err error) (*state.AppExecResult, error) {
	if err != nil {
		return nil, err
	}
	return x.e.GetTxExecResult(x.t, h), nil
}

func (x *chainActor) Sender() util.Uint160 { return x.signer.ScriptHash() }

func (x *chainActor) MakeCall(util.Uint160, string, ...any) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (x *chainActor) MakeRun([]byte) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (x *chainActor) MakeUnsignedCall(util.Uint160, string, []transaction.Attribute, ...any) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (x *chainActor) MakeUnsignedRun([]byte, []transaction.Attribute) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (x *chainActor) SendRun([]byte) (util.Uint256, uint32, error) {
	return util.Uint256{}, 0, errors.New("not implemented")
}

func TestWriter_Verify(t *testing.T) {
	x := newEnv(t, 2)
	ctx := context.Background()

	gasBalance := func(acc util.Uint160) int64 {
		s, err := x.e.CommitteeInvoker(x.e.NativeHash(t, nativenames.Gas)).TestInvoke(t, "balanceOf", acc)
		require.NoError(t, err)
		return s.Pop().BigInt().Int64()
	}

	owner := NewWriter(&chainActor{
		Invoker: tests.NewInvoker(t, x.e),
		t:       t,
		e:       x.e,
		signer:  x.e.Committee,
	}, x.contract, zaptest.NewLogger(t))
	require.Equal(t, address.Uint160ToString(x.e.CommitteeHash), owner.Account())

	before := gasBalance(x.reporter.ScriptHash())

	txH, err := owner.Verify(ctx, 1, big.NewInt(5000_0000))
	require.NoError(t, err)
	require.NotEmpty(t, txH)

	require.Equal(t, before+5000_0000, gasBalance(x.reporter.ScriptHash()))

	rec, err := x.port.GetReport(ctx, 1)
	require.NoError(t, err)
	require.True(t, rec.Verified)
	require.Equal(t, "0.5", report.GASUnits.Format(rec.Reward))

	t.Run("twice", func(t *testing.T) {
		_, err := owner.Verify(ctx, 1, big.NewInt(1))
		require.ErrorIs(t, err, report.ErrTransactionFailed)
	})

	t.Run("non-positive reward", func(t *testing.T) {
		_, err := owner.Verify(ctx, 0, big.NewInt(0))
		require.ErrorIs(t, err, report.ErrTransactionFailed)
	})

	t.Run("not an owner", func(t *testing.T) {
		stranger := x.e.NewAccount(t)
		w := NewWriter(&chainActor{
			Invoker: tests.NewInvoker(t, x.e, stranger),
			t:       t,
			e:       x.e,
			signer:  stranger,
		}, x.contract, nil)

		_, err := w.Verify(ctx, 0, big.NewInt(1))
		require.ErrorIs(t, err, report.ErrTransactionFailed)

		rec, err := x.port.GetReport(ctx, 0)
		require.NoError(t, err)
		require.False(t, rec.Verified)
	})
}

func TestOpenAccount(t *testing.T) {
	acc, err := wallet.NewAccount()
	require.NoError(t, err)
	require.NoError(t, acc.Encrypt("pass", keys.NEP2ScryptParams()))

	walletPath := filepath.Join(t.TempDir(), "wallet.json")

	wlt, err := wallet.NewWallet(walletPath)
	require.NoError(t, err)

	wlt.AddAccount(acc)
	require.NoError(t, wlt.Save())

	res, err := openAccount(WalletPrm{Path: walletPath, Password: "pass"})
	require.NoError(t, err)
	require.Equal(t, acc.ScriptHash(), res.ScriptHash())

	res, err = openAccount(WalletPrm{Path: walletPath, Password: "pass", Address: acc.Address})
	require.NoError(t, err)
	require.Equal(t, acc.ScriptHash(), res.ScriptHash())

	_, err = openAccount(WalletPrm{Path: walletPath, Password: "wrong"})
	require.Error(t, err)

	_, err = openAccount(WalletPrm{Path: walletPath, Address: address.Uint160ToString(util.Uint160{1})})
	require.Error(t, err)

	_, err = openAccount(WalletPrm{Path: filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
}
