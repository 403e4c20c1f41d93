package main

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:     "publish <topic> [payload]",
	Aliases: []string{"p", "pub"},
	Short:   "Write a value to a topic",
	Long: `Writes a value to a topic. The payload is read from stdin when not given:

  kvui publish some/key </etc/hostname`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _, _, err := connect(nil)
		if err != nil {
			return err
		}
		defer session.Close()

		var body []byte
		if len(args) == 2 {
			body = []byte(args[1])
		} else {
			body, err = io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return errors.Wrap(err, "failed to read payload from stdin")
			}
		}
		return publish(cmd.Context(), session, args[0], body)
	},
}

func publish(ctx context.Context, session broker.Session, topic string, body []byte) error {
	if !broker.ValidTopic(topic) {
		return errors.Errorf("invalid topic %q", topic)
	}
	return errors.Wrap(session.Publish(ctx, topic, body), "failed to publish")
}
