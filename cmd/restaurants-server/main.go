package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurants/internal/server"
	"restaurants/internal/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := shared.NewServerViper()

	cmd := &cobra.Command{
		Use:           "restaurants-server",
		Short:         "Serve the restaurants API described by its contract",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, v)
		},
	}

	f := cmd.Flags()
	f.String("config", "", "path to a YAML config file (env RESTAURANTS_CONFIG)")
	f.String("host", "", "interface to listen on (default all)")
	f.Int("port", 3000, "port to listen on")
	f.String("store", shared.StoreMemory, "record store: memory or sqlite")
	f.String("contract", "", "API contract file (default: embedded)")
	f.String("log-level", "info", "debug, info, warn or error")
	f.String("log-format", "json", "json or text")
	f.Bool("metrics", true, "serve prometheus metrics at /metrics")
	f.Duration("shutdown-timeout", 10*time.Second, "grace period for in-flight requests")

	for key, flag := range map[string]string{
		shared.KeyConfig:          "config",
		shared.KeyHost:            "host",
		shared.KeyPort:            "port",
		shared.KeyStore:           "store",
		shared.KeyContract:        "contract",
		shared.KeyLogLevel:        "log-level",
		shared.KeyLogFormat:       "log-format",
		shared.KeyMetrics:         "metrics",
		shared.KeyShutdownTimeout: "shutdown-timeout",
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := shared.LoadServerConfig(v)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return err
	}

	log, err := server.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return err
	}

	var reg *prometheus.Registry
	if cfg.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	app, err := server.NewApp(ctx, cfg, log, reg)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}
	defer app.Close()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		log.Error("startup failed", "error", fmt.Errorf("listen %s: %w", cfg.Addr(), err))
		return err
	}

	for _, r := range app.Routes {
		log.Debug("route", "method", r.Method, "path", r.Path, "operation", r.OperationID)
	}
	log.Info("restaurants-server listening",
		"addr", ln.Addr().String(),
		"store", cfg.Store,
		"routes", len(app.Routes),
		"metrics", cfg.Metrics,
	)

	if err := app.Serve(ctx, ln, cfg.ShutdownTimeout); err != nil {
		log.Error("server stopped", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
