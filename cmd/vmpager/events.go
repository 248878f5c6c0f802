package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vmpager/datarecording"
	"github.com/sarchlab/vmpager/tracing"
)

var eventsCmd = &cobra.Command{
	Use:   "events <recording.sqlite3>",
	Short: "Print the events of a recorded run as CSV.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := cmd.Flags().GetString("kind")
		if err != nil {
			return err
		}

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		return printEvents(cmd.Context(), args[0], kind, limit)
	},
}

func init() {
	eventsCmd.Flags().String("kind", "",
		"Only print events of this kind, e.g. PageFault.")
	eventsCmd.Flags().Int("limit", 0, "Print at most this many events.")

	rootCmd.AddCommand(eventsCmd)
}

func printEvents(
	ctx context.Context,
	filename string,
	kind string,
	limit int,
) error {
	if _, err := os.Stat(filename); err != nil {
		return err
	}

	reader := datarecording.NewReader(filename)
	defer reader.Close()

	reader.MapTable("vm_event", tracing.Record{})

	params := datarecording.QueryParams{
		Limit:   limit,
		OrderBy: "Time, ID",
	}

	if kind != "" {
		params.Where = "Kind = ?"
		params.Args = []any{kind}
	}

	results, total, err := reader.Query(ctx, "vm_event", params)
	if err != nil {
		return err
	}

	out := tracing.NewCSVTracer(os.Stdout)
	for _, r := range results {
		out.Trace(*r.(*tracing.Record))
	}
	out.Flush()

	fmt.Fprintf(os.Stderr, "%d of %d events\n", len(results), total)

	return nil
}
