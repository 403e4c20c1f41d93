package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shubhamrasal/kvui/internal/config"
	"github.com/shubhamrasal/kvui/internal/demo"
	"github.com/shubhamrasal/kvui/internal/logging"
	"github.com/shubhamrasal/kvui/internal/nats"
)

func main() {
	// Parse flags
	server := flag.String("server", config.DefaultServer, "NATS server URL")
	bucket := flag.String("bucket", config.DefaultBucket, "Key-value bucket to populate")
	simulate := flag.Bool("simulate", false, "Keep updating the sensor topics until interrupted")
	interval := flag.Duration("interval", time.Second, "Sensor update interval in simulation mode")
	flag.Parse()

	logger, err := logging.Console(os.Stderr, "info")
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to NATS and open the bucket
	client, err := nats.NewClient(&config.Context{Name: "demo", Server: *server, Bucket: *bucket}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect")
	}
	defer client.Close()

	logger.Info().Str("bucket", *bucket).Msg("connected to NATS")

	sim := demo.NewSimulator(client, logger, time.Now().UnixNano())
	if err := sim.Populate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to populate demo data")
	}

	if !*simulate {
		logger.Info().Msg("demo data population completed, run kvui to browse it")
		return
	}

	logger.Info().Dur("interval", *interval).Msg("simulating sensors, press Ctrl+C to stop")
	if err := sim.Run(ctx, *interval); err != nil {
		logger.Error().Err(err).Msg("simulation stopped")
	}
}
