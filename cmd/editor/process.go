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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/workflow"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
	"github.com/jaycherian/gcp-go-video-editor/internal/telemetry"
)

var processFlags struct {
	output      string
	model       string
	workers     int
	keepWorkDir bool
	dryRun      bool
	jsonOut     bool
	noProgress  bool
}

var processCmd = &cobra.Command{
	Use:   "process <input>",
	Short: "Analyze and edit a video",
	Long: `Analyze a video with Gemini, apply the suggested edits and write the
enhanced video. The output defaults to <media.output_dir>/enhanced_<name>.<format>.

On failure nothing is written and the command exits with status 1.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	f := processCmd.Flags()
	f.StringVarP(&processFlags.output, "output", "o", "", "output file")
	f.StringVar(&processFlags.model, "model", cloud.DefaultAgentModelKey, "agent_models key of the analysis model")
	f.IntVar(&processFlags.workers, "workers", 0, "segments processed in parallel (default application.thread_pool_size)")
	f.BoolVar(&processFlags.keepWorkDir, "keep-work-dir", false, "keep extracted frames and clips for inspection")
	f.BoolVar(&processFlags.dryRun, "dry-run", false, "stop after planning and print the plan")
	f.BoolVar(&processFlags.jsonOut, "json", false, "print the run result as JSON")
	f.BoolVar(&processFlags.noProgress, "no-progress", false, "hide the progress bar")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTelemetry(context.WithoutCancel(ctx)) }()

	processor, err := media.NewFFmpeg(media.Options{
		FFmpegPath:  config.Media.FFmpegPath,
		FFprobePath: config.Media.FFprobePath,
		VideoCodec:  config.Media.VideoCodec,
		CRF:         config.Media.CRF,
		Preset:      config.Media.Preset,
	})
	if err != nil {
		return err
	}

	_, models, err := cloud.NewGenAIModels(ctx, config)
	if err != nil {
		return err
	}
	generator, ok := models[processFlags.model]
	if !ok {
		return fmt.Errorf("agent model %q is not configured", processFlags.model)
	}

	opts := []workflow.Option{
		workflow.WithModelName(processFlags.model),
		workflow.WithWorkers(processFlags.workers),
		workflow.WithDryRun(processFlags.dryRun),
	}
	if processFlags.keepWorkDir {
		opts = append(opts, workflow.WithKeepWorkDir(true))
	}
	if config.Storage.InputBucket != "" {
		sc, err := storage.NewClient(ctx)
		if err != nil {
			return err
		}
		defer sc.Close()
		opts = append(opts, workflow.WithStorage(sc))
	}

	var bar *progressbar.ProgressBar
	if !processFlags.noProgress && !processFlags.dryRun {
		bar = newProgressBar(cmd.ErrOrStderr())
		opts = append(opts, workflow.WithProgress(func(seg *model.EditSegment, _ *model.EditedClip) {
			bar.Describe(fmt.Sprintf("segment %d %s", seg.Index, seg.Kind))
			_ = bar.Add(1)
		}))
	}

	editor, err := workflow.NewVideoEditWorkflow(config, processor, generator, opts...)
	if err != nil {
		return err
	}

	result, err := editor.Process(ctx, args[0], processFlags.output)
	if bar != nil {
		_ = bar.Finish()
	}
	if !processFlags.dryRun && result != nil && result.Run != nil {
		recordRun(context.WithoutCancel(ctx), result.Run)
	}
	if err != nil {
		logFailure(ctx, result, err)
		if processFlags.jsonOut && result != nil {
			_ = printJSON(cmd.OutOrStdout(), result)
		}
		return err
	}

	switch {
	case processFlags.jsonOut:
		return printJSON(cmd.OutOrStdout(), result)
	case processFlags.dryRun:
		printPlan(cmd.OutOrStdout(), result.Segments)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), result.Output)
	}
	return nil
}

func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func logFailure(ctx context.Context, result *workflow.Result, err error) {
	attrs := []any{"error", err}
	if result != nil {
		attrs = append(attrs, "kind", result.ErrorKind, "run_id", result.RunId)
		if result.FailedSegment >= 0 {
			attrs = append(attrs, "segment", result.FailedSegment, "timestamp", result.FailedAt)
		}
	}
	slog.ErrorContext(ctx, "edit failed", attrs...)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
