package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/shubhamrasal/kvui/internal/payload"
	"github.com/shubhamrasal/kvui/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var readOnePretty bool

var readOneCmd = &cobra.Command{
	Use:     "read-one [topics...]",
	Aliases: []string{"r", "read"},
	Short:   "Wait for the first value on the given topics and print its payload",
	Long: `Waits for the first value written to one of the topics and prints its payload to stdout.
The topic of the value goes to stderr so both can be handled separately:

  echo "The temperature is $(kvui read-one room/temp)"

Piped output is the exact payload. Use --pretty or kvui log for a readable form.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, cfg, logger, err := connect(args)
		if err != nil {
			return err
		}
		defer session.Close()

		terminal := false
		if f, ok := cmd.OutOrStdout().(*os.File); ok {
			terminal = term.IsTerminal(int(f.Fd()))
		}
		return readOne(cmd.Context(), session, cfg.Topics, readOnePretty, terminal, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
	},
}

func init() {
	readOneCmd.Flags().BoolVarP(&readOnePretty, "pretty", "p", false, "Print the payload in a human readable form")
}

// readOne prints the first written value. Deletions are skipped.
func readOne(ctx context.Context, session broker.Session, patterns []string, pretty, terminal bool, out, errOut io.Writer, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	onErr := func(pattern string, err error) {
		logger.Error().Err(err).Str("pattern", pattern).Msg("subscription ended")
	}

	for sample := range pipeline.FanIn(ctx, session, patterns, onErr) {
		if sample.Kind == models.KindDelete {
			continue
		}

		fmt.Fprintln(errOut, sample.Topic)
		if pretty {
			_, err := fmt.Fprintln(out, payload.Render(payload.Unlimited(sample.Payload), true))
			return errors.Wrap(err, "failed to write payload")
		}
		_, err := out.Write(payload.RawForSink(sample.Payload, terminal))
		return errors.Wrap(err, "failed to write payload")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("every subscription ended before a value arrived")
}
