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
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

var planDuration float64

var planCmd = &cobra.Command{
	Use:   "plan <analysis.json>",
	Short: "Print the segment plan for a saved analysis reply",
	Long: `Plan the segments for an analysis reply without calling the model or
touching any video. Useful to check how overlapping windows resolve.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		analysis, err := commands.ParseAnalysis(string(data))
		if err != nil {
			return editing.NewError(editing.ErrAnalysis, err)
		}
		segments, err := editing.PlanAnalysis(planDuration, analysis)
		if err != nil {
			return err
		}
		printPlan(cmd.OutOrStdout(), segments)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().Float64Var(&planDuration, "duration", 0, "video duration in seconds")
	_ = planCmd.MarkFlagRequired("duration")
}

func printPlan(w io.Writer, segments []*model.EditSegment) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEGMENT\tSTART\tEND\tKIND\tSUGGESTION")
	for _, s := range segments {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%s\t%s\n", s.Index, s.Start, s.End, s.Kind, s.Suggestion)
	}
	_ = tw.Flush()
}
