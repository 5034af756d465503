// Package config provides configuration loading and validation for the report
// service and its command line client.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/civicwatch/incident-reports/report"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported chain kinds.
const (
	ChainNeo = "neo"
	ChainEVM = "evm"
)

// Sentinel validation errors.
var (
	ErrUnknownChain     = errors.New("unknown chain kind")
	ErrMissingEndpoint  = errors.New("missing chain RPC endpoint")
	ErrMissingContract  = errors.New("missing contract address")
	ErrInvalidDecimals  = errors.New("invalid decimals")
	ErrUnknownPolicy    = errors.New("unknown sync policy")
	ErrInvalidWorkers   = errors.New("number of sync workers must not be negative")
	ErrInvalidPort      = errors.New("invalid server port")
	ErrInvalidRateLimit = errors.New("rate limit must not be negative")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrMissingWallet    = errors.New("missing wallet")
	ErrMissingAPIURL    = errors.New("missing API URL")
)

const maxPort = 65535

// Config holds all configuration of the service.
type Config struct {
	Chain  ChainConfig  `mapstructure:"chain"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Server ServerConfig `mapstructure:"server"`
	Wallet WalletConfig `mapstructure:"wallet"`
	Client ClientConfig `mapstructure:"client"`
	Log    LogConfig    `mapstructure:"log"`
}

// ChainConfig describes the contract and the node to reach it.
type ChainConfig struct {
	Kind           string        `mapstructure:"kind"`
	RPCEndpoint    string        `mapstructure:"rpc_endpoint"`
	Contract       string        `mapstructure:"contract"`
	ABIFile        string        `mapstructure:"abi_file"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Zero selects the native token precision of the chain.
	Decimals int `mapstructure:"decimals"`
}

// SyncConfig selects the enumeration policy.
type SyncConfig struct {
	Policy string `mapstructure:"policy"`
	// Negative selects the policy default.
	Origin  int64 `mapstructure:"origin"`
	Workers int   `mapstructure:"workers"`
}

// ServerConfig holds Read API settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WalletConfig holds credentials used to send verification transactions.
// Path and Password are used for N3 chains, PrivateKey for EVM ones.
type WalletConfig struct {
	Path       string `mapstructure:"path"`
	Password   string `mapstructure:"password"`
	Address    string `mapstructure:"address"`
	PrivateKey string `mapstructure:"private_key"`
}

// ClientConfig holds Read API client settings.
type ClientConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks everything the Read API server needs.
func (c *Config) Validate() error {
	if err := c.Chain.Validate(); err != nil {
		return err
	}

	if _, err := c.Sync.ParsePolicy(); err != nil {
		return err
	}

	if c.Sync.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Sync.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRateLimit, c.Server.RateLimit)
	}

	return c.Log.Validate()
}

// Validate checks chain settings.
func (c ChainConfig) Validate() error {
	switch c.Kind {
	case ChainNeo, ChainEVM:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChain, c.Kind)
	}

	if c.RPCEndpoint == "" {
		return ErrMissingEndpoint
	}

	if c.Contract == "" {
		return ErrMissingContract
	}

	if c.Decimals < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, c.Decimals)
	}

	return nil
}

// Units returns amount units of the configured chain.
func (c ChainConfig) Units() report.Units {
	u := report.GASUnits
	if c.Kind == ChainEVM {
		u = report.EtherUnits
	}

	if c.Decimals > 0 {
		u.Decimals = c.Decimals
	}

	return u
}

// ParsePolicy returns configured enumeration policy. BoundedCount starts
// from 0 and Probing from 1 unless origin is set explicitly.
func (c SyncConfig) ParsePolicy() (report.Policy, error) {
	origin := c.Origin
	if origin < 0 {
		origin = 0
		if c.Policy == report.PolicyNameProbing {
			origin = 1
		}
	}

	p, err := report.ParsePolicy(c.Policy, uint64(origin))
	if err != nil {
		return report.Policy{}, fmt.Errorf("%w: %w", ErrUnknownPolicy, err)
	}

	return p, nil
}

// Validate checks that credentials for the given chain kind are set.
func (c WalletConfig) Validate(kind string) error {
	if kind == ChainEVM {
		if c.PrivateKey == "" {
			return fmt.Errorf("%w: private key required", ErrMissingWallet)
		}
		return nil
	}

	if c.Path == "" {
		return fmt.Errorf("%w: wallet file required", ErrMissingWallet)
	}

	return nil
}

// Validate checks client settings.
func (c ClientConfig) Validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}

	return nil
}

// Validate checks log settings.
func (c LogConfig) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}

	switch c.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Format)
	}
}

// Build creates a logger writing to stderr.
func (c LogConfig) Build() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}

	var cfg zap.Config
	if c.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
