package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/saviobatista/sbs-capture/internal/client"
	"github.com/saviobatista/sbs-capture/internal/config"
	"github.com/saviobatista/sbs-capture/internal/db"
	"github.com/saviobatista/sbs-capture/internal/nats"
	"github.com/saviobatista/sbs-capture/internal/redis"
	"github.com/saviobatista/sbs-capture/internal/sink"
	"github.com/saviobatista/sbs-capture/internal/stats"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// cliFlags holds the command line overrides for the environment config.
type cliFlags struct {
	host        string
	port        int
	mode        string
	sinkBackend string
	outputDir   string
	duration    time.Duration
	noReconnect bool
	verbose     bool
	showVersion bool
}

func main() {
	rootCmd, _ := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the capture command and its flag set.
func newRootCmd() (*cobra.Command, *cliFlags) {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "capture",
		Short: "SBS-1 BaseStation feed capture client",
		Long: `Connects to an SBS-1 BaseStation TCP feed (ADSBHub, dump1090,
a local receiver), decodes the comma separated MSG records and writes
them to a sink: timestamped CSV files, PostgreSQL or NATS JetStream.

Configuration comes from environment variables (optionally via a .env
file); flags override individual settings for one-off runs.

Example usage:
  capture --host data.adsbhub.org --port 5002 --duration 1h --output ./data`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.showVersion {
				showVersion()
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runCapture(cfg, newLogger(flags.verbose))
		},
	}

	rootCmd.Flags().StringVar(&flags.host, "host", "", "Feed host (overrides HOST)")
	rootCmd.Flags().IntVar(&flags.port, "port", 0, "Feed port (overrides PORT)")
	rootCmd.Flags().StringVar(&flags.mode, "mode", "", "Output mode: decoded or raw (overrides OUTPUT_MODE)")
	rootCmd.Flags().StringVar(&flags.sinkBackend, "sink", "", "Sink backend: file, postgres or nats (overrides SINK_BACKEND)")
	rootCmd.Flags().StringVar(&flags.outputDir, "output", "", "Directory for CSV output files (overrides OUTPUT_DIR)")
	rootCmd.Flags().DurationVar(&flags.duration, "duration", 0, "Stop after this long, 0 runs until interrupted (overrides RUN_DURATION)")
	rootCmd.Flags().BoolVar(&flags.noReconnect, "no-reconnect", false, "Exit on connection loss instead of reconnecting")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.Flags().BoolVar(&flags.showVersion, "version", false, "Show version information")

	return rootCmd, flags
}

// applyFlagOverrides layers explicitly set flags over the environment config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, flags *cliFlags) {
	if cmd.Flags().Changed("host") {
		cfg.Host = flags.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flags.port
	}
	if cmd.Flags().Changed("mode") {
		cfg.OutputMode = flags.mode
	}
	if cmd.Flags().Changed("sink") {
		cfg.SinkBackend = flags.sinkBackend
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = flags.outputDir
	}
	if cmd.Flags().Changed("duration") {
		cfg.RunDuration = flags.duration
	}
	if flags.noReconnect {
		cfg.Reconnect = false
	}
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// buildSink creates the sink selected by the configuration. The returned
// sink owns its backend connection; Close releases it.
func buildSink(cfg *config.Config, source string) (sink.Sink, error) {
	raw := cfg.OutputMode == config.OutputModeRaw

	switch cfg.SinkBackend {
	case config.SinkFile:
		return sink.NewCSVSink(cfg.OutputDir, raw)
	case config.SinkPostgres:
		dbClient, err := db.New(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create database client: %w", err)
		}
		if err := dbClient.Ping(); err != nil {
			dbClient.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return sink.NewPostgresSink(dbClient, source), nil
	case config.SinkNATS:
		natsClient, err := nats.New(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create NATS client: %w", err)
		}
		return sink.NewNATSSink(natsClient, source), nil
	default:
		return nil, fmt.Errorf("unsupported sink backend: %s", cfg.SinkBackend)
	}
}

// runCapture contains the main application logic and can be tested
func runCapture(cfg *config.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"version": Version,
		"addr":    cfg.Addr(),
		"mode":    cfg.OutputMode,
		"sink":    cfg.SinkBackend,
	}).Info("Starting SBS capture")

	source := cfg.Addr()
	snk, err := buildSink(cfg, source)
	if err != nil {
		return err
	}

	st := stats.New(source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional status heartbeat, published to Redis when configured.
	var redisClient *redis.Client
	heartbeatDone := make(chan struct{})
	if cfg.RedisAddr != "" {
		redisClient, err = redis.New(cfg.RedisAddr)
		if err != nil {
			if cerr := snk.Close(); cerr != nil {
				logger.WithError(cerr).Warn("Failed to close sink")
			}
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		st.SetStore(redisClient)
		go func() {
			defer close(heartbeatDone)
			st.StartHeartbeat(ctx, cfg.StatsInterval, logger)
		}()
	} else {
		close(heartbeatDone)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig.String()).Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := client.New(cfg, snk, st, logger).Run(ctx)

	cancel()
	select {
	case <-heartbeatDone:
	case <-time.After(2 * time.Second):
		logger.Warn("Timed out waiting for the status heartbeat to stop")
	}

	if err := snk.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close sink")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close redis client")
		}
	}

	fmt.Println(st.String())
	return runErr
}

// showVersion displays version information
func showVersion() {
	fmt.Printf("SBS Capture\n")
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
