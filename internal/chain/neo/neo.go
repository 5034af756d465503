// Package neo provides access to the Reports contract deployed in a Neo N3
// network.
package neo

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/civicwatch/incident-reports/contracts/reports/reportsconst"
	"github.com/civicwatch/incident-reports/report"
	"github.com/civicwatch/incident-reports/rpc/reports"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
)

// Prm groups parameters of Dial.
type Prm struct {
	// Network address of the Neo RPC server.
	Endpoint string

	// Contract address, either N3 address or little-endian script hash.
	Contract string

	DialTimeout    time.Duration
	RequestTimeout time.Duration

	Logger *zap.Logger
}

// Port reads reports through Neo RPC node. It implements report.ReadPort,
// report.Counter and report.OwnerReader.
type Port struct {
	log    *zap.Logger
	rpc    *rpcclient.Client
	reader *reports.ContractReader
}

// Dial connects to the Neo RPC server and returns Port reading the configured
// contract.
func Dial(ctx context.Context, prm Prm) (*Port, error) {
	contract, err := ParseContract(prm.Contract)
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

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	p := New(invoker.New(c, nil), contract, prm.Logger)
	p.rpc = c

	p.log.Info("connected to Neo RPC server",
		zap.String("endpoint", prm.Endpoint), zap.Stringer("contract", contract))

	return p, nil
}

// New returns Port reading the contract through the given invoker.
func New(inv reports.Invoker, contract util.Uint160, log *zap.Logger) *Port {
	if log == nil {
		log = zap.NewNop()
	}

	return &Port{
		log:    log,
		reader: reports.NewReader(inv, contract),
	}
}

// ParseContract decodes contract hash from an N3 address or a hex-encoded
// little-endian script hash with optional 0x prefix.
func ParseContract(s string) (util.Uint160, error) {
	if h, err := address.StringToUint160(s); err == nil {
		return h, nil
	}

	h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid contract %q: neither address nor script hash", s)
	}

	return h, nil
}

// GetReport implements report.ReadPort.
func (x *Port) GetReport(ctx context.Context, index uint64) (report.Record, error) {
	if err := ctx.Err(); err != nil {
		return report.Record{}, err
	}

	r, err := x.reader.GetReport(new(big.Int).SetUint64(index))
	if err != nil {
		return report.Record{}, classify(err)
	}

	return report.Record{
		ID:           index,
		Reporter:     address.Uint160ToString(r.Reporter),
		Description:  r.Description,
		Location:     r.Location,
		EvidenceLink: r.EvidenceLink,
		Verified:     r.Verified,
		Reward:       r.Reward,
	}, nil
}

// ReportCount implements report.Counter.
func (x *Port) ReportCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := x.reader.ReportCount()
	if err != nil {
		return 0, fmt.Errorf("call reportCount: %w", err)
	}

	if n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("invalid report count %s", n)
	}

	return n.Uint64(), nil
}

// Owner implements report.OwnerReader.
func (x *Port) Owner(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h, err := x.reader.Owner()
	if err != nil {
		return "", fmt.Errorf("call owner: %w", err)
	}

	return address.Uint160ToString(h), nil
}

// Close closes underlying RPC connection if any.
func (x *Port) Close() {
	if x.rpc != nil {
		x.rpc.Close()
	}
}

// classify maps contract exception about missing report to report.ErrNotFound.
func classify(err error) error {
	if strings.Contains(err.Error(), reportsconst.ErrReportNotFound) {
		return fmt.Errorf("%w: %w", report.ErrNotFound, err)
	}

	return fmt.Errorf("call getReport: %w", err)
}
