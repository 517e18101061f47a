package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcpdrift/internal/domain"
	"mcpdrift/internal/infra/baselinestore"
	"mcpdrift/internal/infra/catalog"
	"mcpdrift/internal/infra/probe"
	"mcpdrift/internal/infra/telemetry"
)

func newProbeCmd(opts *cliOptions) *cobra.Command {
	var (
		sessions      int
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe the configured server and save a baseline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := catalog.NewLoader(opts.logger).Load(ctx, opts.configPath)
			if err != nil {
				return err
			}
			if opts.storePath != "" {
				cfg.StorePath = opts.storePath
			}
			if sessions < 1 {
				sessions = 1
			}

			registry := prometheus.NewRegistry()
			metrics := telemetry.NewPrometheusMetrics(registry)
			stopMetrics := serveMetrics(metricsListen, registry, opts.logger)
			defer stopMetrics()

			store, err := baselinestore.Open(cfg.StorePath, opts.logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			baselines, err := runProbeSessions(ctx, cfg, sessions, metrics, opts.logger)
			if err != nil {
				return err
			}

			if previous, err := store.Latest(); err == nil {
				if diff, err := domain.CompareBaselines(previous, baselines[0], nil); err == nil {
					metrics.ObserveDiff(diff)
					opts.logger.Info("drift since previous baseline",
						zap.String("severity", string(diff.Severity)))
				}
			}

			keys := make([]string, 0, len(baselines))
			for _, baseline := range baselines {
				key, err := store.Save(baseline)
				if err != nil {
					return err
				}
				keys = append(keys, key)
			}
			return printProbeResult(baselines, keys, opts.jsonOutput)
		},
	}

	cmd.Flags().IntVar(&sessions, "sessions", 1, "number of independent probe sessions to run")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address while probing")

	return cmd
}

func runProbeSessions(ctx context.Context, cfg catalog.Config, count int, metrics *telemetry.PrometheusMetrics, logger *zap.Logger) ([]domain.Baseline, error) {
	clients := make([]*probe.StdioClient, 0, count)
	defer func() {
		for _, client := range clients {
			_ = client.Close()
		}
	}()

	runs := make([]*probe.Session, 0, count)
	for i := 0; i < count; i++ {
		client, err := probe.DialStdio(ctx, cfg.Server.Cmd, cfg.Server.Env, cfg.Server.Cwd)
		if err != nil {
			return nil, fmt.Errorf("dial server: %w", err)
		}
		clients = append(clients, client)

		session, err := probe.NewSession(probe.SessionOptions{
			Caller: client,
			Graph:  cfg.Graph,
			Config: probe.SessionConfig{
				Mode:          cfg.Mode,
				ServerCommand: cfg.Server.Command(),
				CallsPerTool:  cfg.CallsPerTool,
				CallTimeout:   cfg.CallTimeout,
				Ledger:        cfg.Ledger,
			},
			Logger:  logger,
			Metrics: metrics,
		})
		if err != nil {
			return nil, err
		}
		runs = append(runs, session)
	}

	return probe.RunParallel(ctx, runs, cfg.Concurrency)
}

func serveMetrics(listen string, registry *prometheus.Registry, logger *zap.Logger) func() {
	if listen == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: listen, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
