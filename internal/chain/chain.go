// Package chain opens the Reports contract drivers selected by configuration.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/civicwatch/incident-reports/internal/chain/evm"
	"github.com/civicwatch/incident-reports/internal/chain/neo"
	"github.com/civicwatch/incident-reports/internal/config"
	"github.com/civicwatch/incident-reports/report"
	"go.uber.org/zap"
)

// Port is a read connection to the contract. Ports of contracts exposing the
// report count implement report.Counter too.
type Port interface {
	report.ReadPort
	report.OwnerReader
	Close()
}

// Writer is a connection to the contract able to send verifications.
type Writer interface {
	report.Verifier
	// Account returns address of the signing account in the chain format.
	Account() string
	Close()
}

// Open connects to the node of the configured chain.
func Open(ctx context.Context, cfg config.ChainConfig, log *zap.Logger) (Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case config.ChainNeo:
		p, err := neo.Dial(ctx, neoPrm(cfg, log))
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ChainEVM:
		return evm.Dial(ctx, evmPrm(cfg, log))
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownChain, cfg.Kind)
	}
}

// OpenWriter connects to the node of the configured chain and unlocks the
// configured signing account.
func OpenWriter(ctx context.Context, cfg config.ChainConfig, wlt config.WalletConfig, log *zap.Logger) (Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := wlt.Validate(cfg.Kind); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case config.ChainNeo:
		w, err := neo.DialWriter(ctx, neoPrm(cfg, log), neo.WalletPrm{
			Path:     wlt.Path,
			Password: wlt.Password,
			Address:  wlt.Address,
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	case config.ChainEVM:
		w, err := evm.DialWriter(ctx, evmPrm(cfg, log), wlt.PrivateKey)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownChain, cfg.Kind)
	}
}

func neoPrm(cfg config.ChainConfig, log *zap.Logger) neo.Prm {
	return neo.Prm{
		Endpoint:       cfg.RPCEndpoint,
		Contract:       cfg.Contract,
		DialTimeout:    cfg.DialTimeout,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	}
}

func evmPrm(cfg config.ChainConfig, log *zap.Logger) evm.Prm {
	return evm.Prm{
		Endpoint:       cfg.RPCEndpoint,
		Contract:       cfg.Contract,
		ABIFile:        cfg.ABIFile,
		DialTimeout:    cfg.DialTimeout,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	}
}

// SameAccount compares account addresses printed by drivers. EVM addresses
// are compared case-insensitively since checksum casing may differ.
func SameAccount(kind, a, b string) bool {
	if kind == config.ChainEVM {
		return strings.EqualFold(a, b)
	}

	return a == b
}
