// Command server is the composition root: it loads configuration, builds
// one reactor Worker (wrapped in an httpserver.Server) per configured
// worker count, gives each its own copy of one handler Registry, picks
// a Distribution strategy, and serves Prometheus metrics on a dedicated
// listener separate from the data-plane workers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caturner81/server/internal/config"
	"github.com/caturner81/server/internal/http11"
	"github.com/caturner81/server/internal/httpserver"
	"github.com/caturner81/server/internal/selector"
	"github.com/caturner81/server/internal/socket"
)

func main() {
	v := viper.New()
	root := &cobra.Command{
		Use:           "server",
		Short:         "A shared-nothing, per-worker reactor HTTP/1.1 server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if err := config.BindFlags(root, v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return run(config.Load(v))
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)

	registry := httpserver.NewRegistry()
	registry.Register("/healthz", func(req *http11.Request) *http11.Response {
		return http11.OK([]byte("ok"), []byte("text/plain"))
	})

	servers := make([]*httpserver.Server, 0, cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		dateCache := http11.NewDateCache()
		sel, err := selector.New()
		if err != nil {
			return fmt.Errorf("server: new selector for worker %d: %w", i, err)
		}
		name := fmt.Sprintf("worker-%d", i)

		srvCfg := httpserver.DefaultConfig()
		srvCfg.ConnectionBufferSize = cfg.ConnectionBufferSize
		srvCfg.HandshakeBufferSize = cfg.HandshakeBufferSize
		srvCfg.ReadyResponseQueueCapacity = cfg.ReadyResponseQueueCapacity
		srvCfg.ServerName = "server"

		srv, err := httpserver.NewServer(name, sel, srvCfg, registry.Clone(), dateCache, logger)
		if err != nil {
			return fmt.Errorf("server: new server for worker %d: %w", i, err)
		}
		servers = append(servers, srv)
	}

	socketCfg := socket.DefaultConfig()
	dist, err := newDistribution(cfg, socketCfg, servers)
	if err != nil {
		return err
	}

	for _, srv := range servers {
		srv := srv
		go func() {
			if err := srv.Run(); err != nil {
				logger.Error().Err(err).Str("worker", srv.Name()).Msg("worker exited with error")
			}
		}()
	}
	go dist.Run()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics listener exited with error")
			}
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener started")
	}

	logger.Info().Str("address", cfg.Address).Int("workers", cfg.WorkerCount).Bool("reuse_port", cfg.ReusePort).Msg("server started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Dur("grace_period", cfg.ShutdownGracePeriod).Msg("shutting down")
	dist.Stop()
	time.Sleep(cfg.ShutdownGracePeriod)
	for _, srv := range servers {
		srv.Shutdown()
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		_ = metricsServer.Shutdown(ctx)
	}
	return nil
}

func newDistribution(cfg config.Config, socketCfg *socket.Config, servers []*httpserver.Server) (httpserver.Distribution, error) {
	if cfg.ReusePort {
		return httpserver.NewReusePortDistribution(cfg.Address, cfg.ListenBacklog, socketCfg, servers)
	}
	return httpserver.NewRoundRobinDistribution(cfg.Address, cfg.ListenBacklog, socketCfg, servers)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
