package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all settings.
const envPrefix = "REPORTS"

// DotEnvFile is read from the working directory before environment lookup.
const DotEnvFile = ".env"

// Default configuration values.
const (
	DefaultPort      = 5000
	DefaultRateLimit = 10
	DefaultRateBurst = 20
	DefaultAPIURL    = "http://localhost:5000"
)

// Load loads configuration from defaults, an optional YAML file, the .env
// file in the working directory and REPORTS_* environment variables, in
// increasing priority. Missing files are not an error. Load doesn't validate
// the result: requirements differ per command.
func Load(configPath string) (*Config, error) {
	err := godotenv.Load(DotEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// legacy variable names of the dashboard deployment
	for key, alias := range map[string]string{
		"chain.rpc_endpoint": "INFURA_URL",
		"server.port":        "PORT",
	} {
		err = v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias)
		if err != nil {
			return nil, fmt.Errorf("bind %s env: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)

		err = v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain.kind", ChainNeo)
	v.SetDefault("chain.rpc_endpoint", "")
	v.SetDefault("chain.contract", "")
	v.SetDefault("chain.abi_file", "")
	v.SetDefault("chain.dial_timeout", "15s")
	v.SetDefault("chain.request_timeout", "15s")
	v.SetDefault("chain.decimals", 0)

	v.SetDefault("sync.policy", "bounded")
	v.SetDefault("sync.origin", -1)
	v.SetDefault("sync.workers", 1)

	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.rate_limit", DefaultRateLimit)
	v.SetDefault("server.rate_burst", DefaultRateBurst)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("wallet.path", "")
	v.SetDefault("wallet.password", "")
	v.SetDefault("wallet.address", "")
	v.SetDefault("wallet.private_key", "")

	v.SetDefault("client.api_url", DefaultAPIURL)
	v.SetDefault("client.timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
