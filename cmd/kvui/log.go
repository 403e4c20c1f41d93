package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/shubhamrasal/kvui/internal/payload"
	"github.com/shubhamrasal/kvui/internal/pipeline"
	"github.com/spf13/cobra"
)

var logJSON bool

var logCmd = &cobra.Command{
	Use:     "log [topics...]",
	Aliases: []string{"l"},
	Short:   "Print every sample of the given topics to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, cfg, logger, err := connect(args)
		if err != nil {
			return err
		}
		defer session.Close()
		return logSamples(cmd.Context(), session, cfg.Topics, logJSON, cmd.OutOrStdout(), logger)
	},
}

func init() {
	logCmd.Flags().BoolVarP(&logJSON, "json", "j", false, "Output samples as newline-delimited JSON")
}

type logLine struct {
	Time    models.Timestamp `json:"time"`
	Kind    models.EventKind `json:"kind"`
	Topic   string           `json:"topic"`
	Size    int              `json:"size"`
	Payload any              `json:"payload"`
}

// logSamples prints samples until ctx ends or every subscription failed
func logSamples(ctx context.Context, session broker.Session, patterns []string, asJSON bool, out io.Writer, logger zerolog.Logger) error {
	onErr := func(pattern string, err error) {
		logger.Error().Err(err).Str("pattern", pattern).Msg("subscription ended")
	}

	enc := json.NewEncoder(out)
	for sample := range pipeline.FanIn(ctx, session, patterns, onErr) {
		entry := models.NewHistoryEntry(sample.Kind, time.Now(), sample.Payload, 0)

		if asJSON {
			err := enc.Encode(logLine{
				Time:    entry.Time,
				Kind:    entry.Kind,
				Topic:   sample.Topic,
				Size:    entry.PayloadSize,
				Payload: payload.JSONValue(entry.Payload),
			})
			if err != nil {
				return errors.Wrap(err, "failed to write log line")
			}
			continue
		}

		_, err := fmt.Fprintf(out, "%-12s Kind:%-6s %-50s Payload(%3d): %s\n",
			entry.Time, entry.Kind, sample.Topic, entry.PayloadSize, entry.Payload)
		if err != nil {
			return errors.Wrap(err, "failed to write log line")
		}
	}
	return nil
}
