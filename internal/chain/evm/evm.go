// Package evm provides access to the incident reports contract deployed in an
// Ethereum compatible network.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/civicwatch/incident-reports/report"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Prm groups parameters of Dial.
type Prm struct {
	// JSON-RPC endpoint of the node, e.g. Infura URL.
	Endpoint string

	// Hex-encoded contract address.
	Contract string

	// Path to the contract ABI JSON, DefaultABI if empty.
	ABIFile string

	DialTimeout time.Duration

	// Limits every contract call, zero means no limit.
	RequestTimeout time.Duration

	Logger *zap.Logger
}

// Reader reads reports from the contract. Readers returned for ABIs having
// reportCount method implement report.Counter too.
type Reader interface {
	report.ReadPort
	report.OwnerReader
	Close()
}

// Port reads reports through Ethereum JSON-RPC node.
type Port struct {
	log      *zap.Logger
	client   *ethclient.Client
	contract *bind.BoundContract
	method   abi.Method
	timeout  time.Duration
}

// CountingPort is a Port of the contract exposing report count.
type CountingPort struct {
	*Port
}

// Dial connects to the Ethereum node and returns Reader of the configured
// contract.
func Dial(ctx context.Context, prm Prm) (Reader, error) {
	contract, err := ParseAddress(prm.Contract)
	if err != nil {
		return nil, err
	}

	parsed, err := LoadABI(prm.ABIFile)
	if err != nil {
		return nil, err
	}

	dialCtx := ctx
	if prm.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, prm.DialTimeout)
		defer cancel()
	}

	c, err := ethclient.DialContext(dialCtx, prm.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	chainID, err := c.ChainID(dialCtx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("get chain ID: %w", err)
	}

	p := newPort(c, contract, parsed, prm.RequestTimeout, prm.Logger)
	p.client = c

	p.log.Info("connected to Ethereum node",
		zap.Stringer("chain", chainID), zap.Stringer("contract", contract),
		zap.Bool("counter", hasCounter(parsed)))

	return withCounter(p, parsed), nil
}

// New returns Reader calling the contract through the given caller. ABI must
// pass LoadABI checks.
func New(caller bind.ContractCaller, contract common.Address, parsed abi.ABI, timeout time.Duration, log *zap.Logger) Reader {
	return withCounter(newPort(caller, contract, parsed, timeout, log), parsed)
}

func newPort(caller bind.ContractCaller, contract common.Address, parsed abi.ABI, timeout time.Duration, log *zap.Logger) *Port {
	if log == nil {
		log = zap.NewNop()
	}

	return &Port{
		log:      log,
		contract: bind.NewBoundContract(contract, parsed, caller, nil, nil),
		method:   parsed.Methods[methodReports],
		timeout:  timeout,
	}
}

func withCounter(p *Port, parsed abi.ABI) Reader {
	if hasCounter(parsed) {
		return CountingPort{p}
	}

	return p
}

// ParseAddress decodes hex-encoded account address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}

	return common.HexToAddress(s), nil
}

func (x *Port) call(ctx context.Context, method string, args ...any) ([]any, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	var out []any

	err := x.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// GetReport implements report.ReadPort.
func (x *Port) GetReport(ctx context.Context, index uint64) (report.Record, error) {
	if err := ctx.Err(); err != nil {
		return report.Record{}, err
	}

	out, err := x.call(ctx, methodReports, new(big.Int).SetUint64(index))
	if err != nil {
		return report.Record{}, classify(err)
	}

	var (
		rec = report.Record{ID: index}
		ok  bool
	)

	for i, name := range reportFields {
		v := out[outputIndex(x.method, name)]

		switch i {
		case 0:
			var a common.Address
			a, ok = v.(common.Address)
			rec.Reporter = a.Hex()
		case 1:
			rec.Description, ok = v.(string)
		case 2:
			rec.Location, ok = v.(string)
		case 3:
			rec.EvidenceLink, ok = v.(string)
		case 4:
			rec.Verified, ok = v.(bool)
		case 5:
			rec.Reward, ok = v.(*big.Int)
		}

		if !ok {
			return report.Record{}, fmt.Errorf("unexpected type %T of report field %s", v, name)
		}
	}

	return rec, nil
}

// Owner implements report.OwnerReader.
func (x *Port) Owner(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := x.call(ctx, methodOwner)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", methodOwner, err)
	}

	a, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected owner type %T", out[0])
	}

	return a.Hex(), nil
}

// Close closes underlying RPC connection if any.
func (x *Port) Close() {
	if x.client != nil {
		x.client.Close()
	}
}

// ReportCount implements report.Counter.
func (x CountingPort) ReportCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	out, err := x.call(ctx, methodReportCount)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", methodReportCount, err)
	}

	n, ok := out[0].(*big.Int)
	if !ok || n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("invalid report count %v", out[0])
	}

	return n.Uint64(), nil
}

// classify maps reverted call to report.ErrNotFound: the reports getter
// reverts on out-of-range index.
func classify(err error) error {
	if strings.Contains(err.Error(), "execution reverted") {
		return fmt.Errorf("%w: %w", report.ErrNotFound, err)
	}

	return fmt.Errorf("call %s: %w", methodReports, err)
}
