package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/civicwatch/incident-reports/report"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Backend is a node connection able to send transactions and report their
// receipts.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Writer sends report verifications to the contract. It implements
// report.Verifier.
type Writer struct {
	log      *zap.Logger
	client   *ethclient.Client
	backend  Backend
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
}

// DialWriter connects to the Ethereum node and returns Writer signing
// transactions with the given hex-encoded private key.
func DialWriter(ctx context.Context, prm Prm, privateKey string) (*Writer, error) {
	contract, err := ParseAddress(prm.Contract)
	if err != nil {
		return nil, err
	}

	parsed, err := LoadABI(prm.ABIFile)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	c, err := ethclient.DialContext(ctx, prm.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	chainID, err := c.ChainID(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("get chain ID: %w", err)
	}

	w, err := NewWriter(c, contract, parsed, key, chainID, prm.Logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	w.client = c

	return w, nil
}

// NewWriter returns Writer sending transactions through the given backend.
func NewWriter(b Backend, contract common.Address, parsed abi.ABI, key *ecdsa.PrivateKey, chainID *big.Int, log *zap.Logger) (*Writer, error) {
	if _, ok := parsed.Methods[methodVerifyReport]; !ok {
		return nil, fmt.Errorf("ABI lacks %s method", methodVerifyReport)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Writer{
		log:      log,
		backend:  b,
		contract: bind.NewBoundContract(contract, parsed, b, b, b),
		key:      key,
		chainID:  chainID,
	}, nil
}

// Account returns address of the signing account.
func (x *Writer) Account() string {
	return crypto.PubkeyToAddress(x.key.PublicKey).Hex()
}

// Verify implements report.Verifier. It calls verifyReport attaching the
// reward as transaction value and waits for the receipt.
func (x *Writer) Verify(ctx context.Context, id uint64, reward *big.Int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if reward == nil || reward.Sign() <= 0 {
		return "", fmt.Errorf("%w: reward must be positive", report.ErrTransactionFailed)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(x.key, x.chainID)
	if err != nil {
		return "", fmt.Errorf("%w: init transactor: %w", report.ErrTransactionFailed, err)
	}

	opts.Context = ctx
	opts.Value = reward

	tx, err := x.contract.Transact(opts, methodVerifyReport, new(big.Int).SetUint64(id), reward)
	if err != nil {
		return "", fmt.Errorf("%w: send transaction: %w", report.ErrTransactionFailed, err)
	}

	h := tx.Hash().Hex()

	x.log.Info("verification transaction sent",
		zap.Uint64("report", id), zap.String("tx", h), zap.Uint64("nonce", tx.Nonce()))

	receipt, err := bind.WaitMined(ctx, x.backend, tx)
	if err != nil {
		return h, fmt.Errorf("%w: await transaction %s: %w", report.ErrTransactionFailed, h, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return h, fmt.Errorf("%w: transaction %s reverted", report.ErrTransactionFailed, h)
	}

	return h, nil
}

// Close closes underlying RPC connection if any.
func (x *Writer) Close() {
	if x.client != nil {
		x.client.Close()
	}
}
