// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent runs, or show one run",
	Long: `Show the runs recorded in application.history_db. Without an argument
the newest runs are listed; with a run id its record is printed as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Application.HistoryDB == "" {
			return errors.New("application.history_db is not configured")
		}
		store, err := history.Open(config.Application.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), run)
		}

		runs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tCREATED\tSTATUS\tERROR\tSEGMENTS\tINPUT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				r.RunId, r.CreateDate.Local().Format("2006-01-02 15:04:05"), r.Status, r.ErrorKind, len(r.Segments), r.InputPath)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
}

// recordRun stores the run when a history database is configured. A
// failure to record is logged and does not change the exit status.
func recordRun(ctx context.Context, run *model.EditRun) {
	if config.Application.HistoryDB == "" {
		return
	}
	store, err := history.Open(config.Application.HistoryDB)
	if err != nil {
		slog.WarnContext(ctx, "history unavailable", "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, run); err != nil {
		slog.WarnContext(ctx, "failed to record run", "run_id", run.RunId, "error", err)
	}
}
