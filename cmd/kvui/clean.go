package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/spf13/cobra"
)

var cleanDryRun bool

var cleanCmd = &cobra.Command{
	Use:     "clean <topic>",
	Aliases: []string{"c"},
	Short:   "Delete a topic, or every topic matching a pattern",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _, _, err := connect(nil)
		if err != nil {
			return err
		}
		defer session.Close()
		return clean(cmd.Context(), session, args[0], cleanDryRun, cmd.OutOrStdout())
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Print what would be deleted")
}

// clean deletes pattern on the network. Wildcard patterns get a single
// delete; plain topics get an empty write first so watchers see the change.
func clean(ctx context.Context, session broker.Session, pattern string, dryRun bool, out io.Writer) error {
	wildcard := broker.HasWildcard(pattern)
	if !wildcard && !broker.ValidTopic(pattern) {
		return errors.Errorf("invalid topic %q", pattern)
	}

	if dryRun {
		if !wildcard {
			fmt.Fprintf(out, "Dry run: would put empty payload and delete %s\n", pattern)
			return nil
		}
		fmt.Fprintf(out, "Dry run: would delete key expression %s\n", pattern)
		if lister, ok := session.(broker.Lister); ok {
			topics, err := lister.Topics(ctx, pattern)
			if err != nil {
				return errors.Wrap(err, "failed to list topics")
			}
			for _, topic := range topics {
				fmt.Fprintf(out, "  %s\n", topic)
			}
		}
		return nil
	}

	if wildcard {
		if err := session.Delete(ctx, pattern); err != nil {
			return errors.Wrap(err, "failed to delete")
		}
		fmt.Fprintf(out, "Deleted key expression %s\n", pattern)
		return nil
	}

	if err := session.Publish(ctx, pattern, []byte{}); err != nil {
		return errors.Wrap(err, "failed to write empty payload")
	}
	if err := session.Delete(ctx, pattern); err != nil {
		return errors.Wrap(err, "failed to delete")
	}
	fmt.Fprintf(out, "Cleaned %s\n", pattern)
	return nil
}
