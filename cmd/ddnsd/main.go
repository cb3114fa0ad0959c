package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudspire/ddnsd/pkg/api"
	"github.com/cloudspire/ddnsd/pkg/config"
	"github.com/cloudspire/ddnsd/pkg/events"
	"github.com/cloudspire/ddnsd/pkg/log"
	"github.com/cloudspire/ddnsd/pkg/metrics"
	"github.com/cloudspire/ddnsd/pkg/provider"
	"github.com/cloudspire/ddnsd/pkg/scheduler"
	"github.com/cloudspire/ddnsd/pkg/status"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ddnsd",
	Short: "ddnsd - dynamic DNS update daemon",
	Long: `ddnsd keeps DNS records pointed at this machine's public IP.

It detects the current public address through an ordered list of
strategies (HTTP echo services, network interfaces, shell commands),
pushes changes to the configured DNS providers with retries, and
serves a small dashboard with live status over SSE and WebSocket.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Detect the public IP and update all providers a single time",
	Long: `Run one detection and update cycle and exit. The exit code is
non-zero when IP detection fails, so the command can be driven from an
external scheduler such as cron or a systemd timer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context())
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"ddnsd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	defaultConfig := os.Getenv("DDNS_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "ddns.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON instead of console output")

	rootCmd.AddCommand(onceCmd)
}

// setup loads configuration and wires the shared pieces of both the
// daemon and one-shot modes.
func setup() (*config.AppConfig, *scheduler.Scheduler, *status.Store, *events.Broker, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})

	entries, err := provider.Entries(cfg.Provider)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("building providers: %w", err)
	}

	store := status.NewStore()
	bus := events.NewBroker()

	sched, err := scheduler.New(cfg, entries, store, bus)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cfg, sched, store, bus, nil
}

// run starts the daemon: event broker, dashboard, and the scheduler
// loop, shutting everything down on SIGINT/SIGTERM.
func run(ctx context.Context) error {
	cfg, sched, store, bus, err := setup()
	if err != nil {
		return err
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus.Start()
	defer bus.Stop()

	logger := log.WithComponent("main")

	server := api.NewServer(cfg.HTTP, store, bus)
	apiErr := make(chan error, 1)
	go func() {
		apiErr <- server.Run(ctx)
	}()

	logger.Info().
		Str("version", Version).
		Str("config", configPath).
		Int("providers", len(cfg.Provider)).
		Msg("ddnsd starting")

	if err := sched.Run(ctx); err != nil {
		return err
	}

	stop()
	if err := <-apiErr; err != nil {
		return fmt.Errorf("dashboard server: %w", err)
	}
	logger.Info().Msg("ddnsd stopped")
	return nil
}

// runOnce performs a single cycle without the dashboard
func runOnce(ctx context.Context) error {
	_, sched, _, bus, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus.Start()
	defer bus.Stop()

	return sched.RunCycle(ctx)
}
