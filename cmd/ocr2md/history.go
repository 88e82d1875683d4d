// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr2md/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past conversions",
	Long: `History lists conversions recorded in the local SQLite ledger,
most recent first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.History.Dir == "" {
			return fmt.Errorf("history is disabled (history.dir is empty)")
		}

		store, err := history.Open(cfg.History.Dir)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := store.List(context.Background(), limit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no conversions recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tSTATUS\tSIZE\tSOURCE\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(e.FinishedAt), e.Status, humanize.Bytes(uint64(e.Bytes)), e.SourcePath, e.Error)
	}
	tw.Flush()
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}
