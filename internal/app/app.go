package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/config"
	"github.com/shubhamrasal/kvui/internal/demo"
	"github.com/shubhamrasal/kvui/internal/logging"
	"github.com/shubhamrasal/kvui/internal/metrics"
	"github.com/shubhamrasal/kvui/internal/nats"
	"github.com/shubhamrasal/kvui/internal/pipeline"
	"github.com/shubhamrasal/kvui/internal/ui"
	"golang.org/x/sync/errgroup"
)

// Broker names accepted by Options.Broker
const (
	BrokerNATS   = "nats"
	BrokerMemory = "memory"
)

const demoInterval = time.Second

// Options are the command line settings shared by every command
type Options struct {
	ServerURL        string
	ConfigPath       string
	Context          string
	Bucket           string
	PayloadSizeLimit int // < 0 keeps the configured limit
	Broker           string
	ReadOnly         bool
	Demo             bool
	MetricsAddr      string
	LogFile          string
	LogLevel         string
	Topics           []string
}

// LoadConfig loads the configuration and applies the command line overrides
func LoadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.ServerURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if opts.Context != "" {
		if err := cfg.SetContext(opts.Context); err != nil {
			return nil, err
		}
	}
	if opts.Bucket != "" {
		cfg.CurrentContext().Bucket = opts.Bucket
	}
	if opts.PayloadSizeLimit >= 0 {
		cfg.PayloadSizeLimit = opts.PayloadSizeLimit
	}
	if len(opts.Topics) > 0 {
		cfg.Topics = opts.Topics
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg, nil
}

// OpenSession connects to the broker named by kind
func OpenSession(cfg *config.Config, kind string, logger zerolog.Logger) (broker.Session, error) {
	switch kind {
	case "", BrokerNATS:
		client, err := nats.NewClient(cfg.CurrentContext(), logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to NATS")
		}
		return client, nil
	case BrokerMemory:
		return broker.NewMemorySession(), nil
	default:
		return nil, errors.Errorf("unknown broker %q (want %s or %s)", kind, BrokerNATS, BrokerMemory)
	}
}

// Run starts the kvui dashboard
func Run(ctx context.Context, opts Options) error {
	// Load configuration
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, closer, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info().
		Str("context", cfg.CurrentContextName()).
		Str("source", cfg.GetConfigSourceDescription()).
		Strs("topics", cfg.Topics).
		Msg("starting")

	// Initialize the session
	session, err := OpenSession(cfg, opts.Broker, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	m := metrics.New()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipe := pipeline.New(session, cfg.Topics, cfg.PayloadSizeLimit,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
	)
	pipe.Start(ctx)

	// Create tview application
	app := tview.NewApplication()
	uiManager := ui.NewUIManager(app, session, pipe, cfg, opts.ReadOnly, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Leaving the UI ends the run
		defer cancel()
		if err := uiManager.Start(gctx); err != nil {
			return errors.Wrap(err, "failed to start UI")
		}
		return nil
	})

	if opts.MetricsAddr != "" {
		g.Go(func() error {
			return m.Serve(gctx, opts.MetricsAddr)
		})
	}

	// The in-process bus starts empty; seed it so there is something to browse
	if opts.Demo || opts.Broker == BrokerMemory {
		sim := demo.NewSimulator(session, logger, time.Now().UnixNano())
		g.Go(func() error {
			select {
			case <-pipe.Ready():
			case <-gctx.Done():
				return nil
			}
			if err := sim.Populate(gctx); err != nil {
				return err
			}
			return sim.Run(gctx, demoInterval)
		})
	}

	return g.Wait()
}
