package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/common/version"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/app"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/config"
	"github.com/shubhamrasal/kvui/internal/logging"
	"github.com/spf13/cobra"
)

var opts = app.Options{PayloadSizeLimit: -1}

var rootCmd = &cobra.Command{
	Use:   "kvui [topics...]",
	Short: "Interactive inspector for a NATS key-value bucket",
	Long: `A terminal UI that watches topic patterns on a NATS JetStream key-value bucket,
keeps the history of every topic and lets you browse, search and clean the key tree.

Topics use / as separator. * matches one level, ** matches any number of levels.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts.Topics = args
		return app.Run(cmd.Context(), opts)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Print("kvui"))
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ServerURL, "server", "s", "", "NATS server URL (overrides config file)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Config file path")
	flags.StringVar(&opts.Context, "context", "", "Config context to use")
	flags.StringVar(&opts.Bucket, "bucket", "", "Key-value bucket to inspect")
	flags.StringVar(&opts.Broker, "broker", app.BrokerNATS, "Broker to use (nats or memory)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.IntVar(&opts.PayloadSizeLimit, "payload-size-limit", -1, "Truncate payloads above this many bytes, 0 keeps them whole")

	rootCmd.Flags().BoolVarP(&opts.ReadOnly, "read-only", "r", false, "Read-only mode (no deletions)")
	rootCmd.Flags().BoolVar(&opts.Demo, "demo", false, "Publish simulated sensor data while running")
	rootCmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.Flags().StringVar(&opts.LogFile, "log-file", "", "Write logs to this file")

	rootCmd.AddCommand(versionCmd, cleanCmd, logCmd, readOneCmd, publishCmd)
}

// connect opens the session for a one-shot command. Logs go to stderr.
func connect(args []string) (broker.Session, *config.Config, zerolog.Logger, error) {
	o := opts
	o.Topics = args

	cfg, err := app.LoadConfig(o)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	// Only the command output belongs on the terminal unless asked otherwise
	level := opts.LogLevel
	if level == "" {
		level = zerolog.LevelWarnValue
	}
	logger, err := logging.Console(os.Stderr, level)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	session, err := app.OpenSession(cfg, o.Broker, logger)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	return session, cfg, logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
