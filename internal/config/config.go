// Package config loads the process-wide settings cmd/server needs to
// build its workers, binding cobra flags through viper so the same knob
// can be set by flag or environment variable, a flag taking precedence.
// No config file is read.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config carries every setting cmd/server needs at startup. Per-worker
// sizing fields map directly onto httpserver.Config; Address,
// WorkerCount and ReusePort decide how the Distribution is built.
type Config struct {
	Address       string
	WorkerCount   int
	ReusePort     bool
	ListenBacklog int

	ConnectionBufferSize       int
	HandshakeBufferSize        int
	ReadyResponseQueueCapacity int

	LogLevel            string
	MetricsAddr         string
	ShutdownGracePeriod time.Duration
}

// Default returns the baseline every flag/env layer overrides from.
func Default() Config {
	return Config{
		Address:                    ":8080",
		WorkerCount:                4,
		ReusePort:                  true,
		ListenBacklog:              1024,
		ConnectionBufferSize:       64 * 1024,
		HandshakeBufferSize:        4 * 1024,
		ReadyResponseQueueCapacity: 256,
		LogLevel:                   "info",
		MetricsAddr:                ":9090",
		ShutdownGracePeriod:        5 * time.Second,
	}
}

// BindFlags registers every Config field as a persistent flag on cmd and
// binds it through v, so Load can read the merged flag/env value back out
// regardless of where it came from.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	def := Default()
	flags := cmd.PersistentFlags()

	flags.String("address", def.Address, "listen address (host:port)")
	flags.Int("worker-count", def.WorkerCount, "number of reactor workers")
	flags.Bool("reuse-port", def.ReusePort, "bind one SO_REUSEPORT socket per worker instead of a shared round-robin acceptor")
	flags.Int("listen-backlog", def.ListenBacklog, "TCP listen backlog")
	flags.Int("connection-buffer-size", def.ConnectionBufferSize, "per-connection read/write buffer size in bytes")
	flags.Int("handshake-buffer-size", def.HandshakeBufferSize, "buffer size reserved for a connection before its first request completes")
	flags.Int("ready-response-queue-capacity", def.ReadyResponseQueueCapacity, "per-connection queue depth for rendered-but-unsent responses")
	flags.String("log-level", def.LogLevel, "debug|info|warn|error")
	flags.String("metrics-addr", def.MetricsAddr, "address for the Prometheus /metrics listener; empty disables it")
	flags.Duration("shutdown-grace-period", def.ShutdownGracePeriod, "time to wait for connections to drain before forcing worker shutdown")

	v.SetEnvPrefix("SERVER")
	v.AutomaticEnv()

	for _, name := range []string{
		"address", "worker-count", "reuse-port", "listen-backlog",
		"connection-buffer-size", "handshake-buffer-size",
		"ready-response-queue-capacity", "log-level", "metrics-addr",
		"shutdown-grace-period",
	} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			return fmt.Errorf("config: bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads every bound key back out of v into a Config. Call it inside
// a cobra RunE, after the command's flags have been parsed.
func Load(v *viper.Viper) Config {
	return Config{
		Address:                    v.GetString("address"),
		WorkerCount:                v.GetInt("worker-count"),
		ReusePort:                  v.GetBool("reuse-port"),
		ListenBacklog:              v.GetInt("listen-backlog"),
		ConnectionBufferSize:       v.GetInt("connection-buffer-size"),
		HandshakeBufferSize:        v.GetInt("handshake-buffer-size"),
		ReadyResponseQueueCapacity: v.GetInt("ready-response-queue-capacity"),
		LogLevel:                   v.GetString("log-level"),
		MetricsAddr:                v.GetString("metrics-addr"),
		ShutdownGracePeriod:        v.GetDuration("shutdown-grace-period"),
	}
}
