// Package main provides reportd, the service publishing incident reports of
// the contract over HTTP.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/civicwatch/incident-reports/internal/api"
	"github.com/civicwatch/incident-reports/internal/chain"
	"github.com/civicwatch/incident-reports/internal/config"
	"github.com/civicwatch/incident-reports/internal/metrics"
	"github.com/civicwatch/incident-reports/report"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time.
var Version = "dev"

func main() {
	err := newRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reportd",
		Short: "Serve incident reports of the contract over HTTP",
		Long: `reportd reads every report from the contract on each request and serves
them as JSON. Configuration is read from the optional YAML file, the .env file
in the working directory and REPORTS_* environment variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if err = cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			log, err := cfg.Log.Build()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, log)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	policy, err := cfg.Sync.ParsePolicy()
	if err != nil {
		return err
	}

	port, err := chain.Open(ctx, cfg.Chain, log)
	if err != nil {
		return fmt.Errorf("open %s chain: %w", cfg.Chain.Kind, err)
	}
	defer port.Close()

	if _, ok := port.(report.Counter); !ok && policy.Kind() == report.KindBoundedCount {
		log.Warn("contract exposes no report count, every request will fail under bounded policy; consider probing")
	}

	l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return newServer(cfg, policy, port, log).Serve(ctx, l, api.ServePrm{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
}

func newServer(cfg *config.Config, policy report.Policy, port chain.Port, log *zap.Logger) *api.Server {
	gin.SetMode(gin.ReleaseMode)

	m := metrics.New()

	s := report.NewSynchronizer(port, report.Prm{
		Logger:   log,
		Workers:  cfg.Sync.Workers,
		Observer: m,
	})

	log.Info("serving reports",
		zap.String("chain", cfg.Chain.Kind), zap.Stringer("policy", policy),
		zap.Int("workers", cfg.Sync.Workers), zap.Int("port", cfg.Server.Port))

	return api.New(api.Prm{
		Synchronizer:   s,
		Owner:          port,
		Policy:         policy,
		Units:          cfg.Chain.Units(),
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		Metrics:        m.Handler(),
		ObserveRequest: m.ObserveRequest,
		Logger:         log,
	})
}
