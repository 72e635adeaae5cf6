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
// Package workflow assembles the edit commands into runnable pipelines.
//
// VideoEditWorkflow edits one local file:
//
//	probe -> work dir -> video upload -> AI analysis -> upload cleanup
//	      -> parse analysis -> plan -> render segments -> reconstruct
//
// VideoEditPipeline wraps it for Cloud Storage notifications: it downloads
// the object, runs the edit, uploads the result and records the run in
// BigQuery.
package workflow

import (
	goctx "context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"text/template"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
)

// Result summarises a run for callers and the CLI.
type Result struct {
	RunId             string                `json:"run_id"`
	Success           bool                  `json:"success"`
	Input             string                `json:"input"`
	Output            string                `json:"output,omitempty"`
	SegmentsProcessed int                   `json:"segments_processed"`
	Analysis          *model.AnalysisResult `json:"analysis,omitempty"`
	Segments          []*model.EditSegment  `json:"-"`
	Timeline          *model.Timeline       `json:"timeline,omitempty"`
	ErrorKind         string                `json:"error_kind,omitempty"`
	FailedSegment     int                   `json:"failed_segment"`
	FailedAt          float64               `json:"failed_at,omitempty"`
	Err               error                 `json:"-"`
	Run               *model.EditRun        `json:"-"`
}

// Option configures a VideoEditWorkflow.
type Option func(*VideoEditWorkflow)

// WithStorage uploads local sources to the input bucket so the model reads
// them from Cloud Storage.
func WithStorage(client *storage.Client) Option {
	return func(w *VideoEditWorkflow) { w.storageClient = client }
}

// WithWorkers overrides application.thread_pool_size.
func WithWorkers(n int) Option {
	return func(w *VideoEditWorkflow) {
		if n > 0 {
			w.workers = n
		}
	}
}

func WithKeepWorkDir(keep bool) Option {
	return func(w *VideoEditWorkflow) { w.keepWorkDir = keep }
}

// WithDryRun stops after planning. Nothing is rendered or written.
func WithDryRun(dryRun bool) Option {
	return func(w *VideoEditWorkflow) { w.dryRun = dryRun }
}

func WithProgress(fn editing.ProgressFunc) Option {
	return func(w *VideoEditWorkflow) { w.progress = fn }
}

func WithModelName(name string) Option {
	return func(w *VideoEditWorkflow) { w.modelName = name }
}

// VideoEditWorkflow is the local edit chain.
type VideoEditWorkflow struct {
	cor.BaseCommand
	config         *cloud.Config
	processor      media.Processor
	generator      cloud.ContentGenerator
	storageClient  *storage.Client
	promptTemplate *template.Template
	workers        int
	keepWorkDir    bool
	dryRun         bool
	modelName      string
	progress       editing.ProgressFunc
	cleanup        *commands.AnalysisUploadCleanup
	chain          cor.Chain
}

// NewVideoEditWorkflow builds the chain. The prompt template comes from
// prompt_templates.analysis.
func NewVideoEditWorkflow(
	config *cloud.Config,
	processor media.Processor,
	generator cloud.ContentGenerator,
	opts ...Option) (*VideoEditWorkflow, error) {

	promptTemplate, err := template.New("analysis-template").Parse(config.PromptTemplates.AnalysisPrompt)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis prompt template: %w", err)
	}

	w := &VideoEditWorkflow{
		BaseCommand:    *cor.NewBaseCommand("video-edit-workflow"),
		config:         config,
		processor:      processor,
		generator:      generator,
		promptTemplate: promptTemplate,
		workers:        config.Application.ThreadPoolSize,
		keepWorkDir:    config.Media.KeepWorkDir,
		modelName:      cloud.DefaultAgentModelKey,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.initializeChain()
	return w, nil
}

func (w *VideoEditWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(commands.NewVideoProbe("probe-video", w.processor))
	out.AddCommand(commands.NewRunWorkDir("create-work-dir", w.config.Media.WorkDir, w.keepWorkDir))
	out.AddCommand(commands.NewVideoUpload("upload-video-for-analysis", w.storageClient, w.config.Storage.InputBucket))
	out.AddCommand(commands.NewEditAnalysisCreator("generate-edit-analysis", w.config, w.generator, w.promptTemplate))

	w.cleanup = commands.NewAnalysisUploadCleanup("cleanup-analysis-upload", w.storageClient)
	out.AddCommand(w.cleanup)

	out.AddCommand(commands.NewAnalysisJsonToStruct("convert-edit-analysis"))
	out.AddCommand(commands.NewSegmentPlanner("plan-segments"))

	if !w.dryRun {
		maxFrames := w.config.Media.MaxFrames
		extractor := editing.NewExtractor(w.processor, maxFrames)
		applier := editing.NewApplier(w.processor, w.config.Media.FontScale)
		renderer := editing.NewRenderer(extractor, applier, w.workers).OnProgress(w.progress)

		out.AddCommand(commands.NewSegmentRenderer("render-segments", renderer))
		out.AddCommand(commands.NewVideoReconstructor("reconstruct-video", editing.NewReconstructor(w.processor)))
	}

	w.chain = out
}

// IsExecutable needs the source path, and an output path unless dry-running.
func (w *VideoEditWorkflow) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil || context.Get(commands.ParamSourcePath) == nil {
		return false
	}
	return w.dryRun || context.Get(commands.ParamOutputPath) != nil
}

// Execute runs the chain. A failed run still removes the copy uploaded for
// analysis.
func (w *VideoEditWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
	if context.HasErrors() && context.Get(commands.GetVideoUploadObjectParameterName()) != nil {
		// The run context may already be canceled.
		context.SetContext(goctx.WithoutCancel(context.GetContext()))
		w.cleanup.Execute(context)
	}
}

// DefaultOutputPath is <media.output_dir>/enhanced_<stem>.<media.output_format>.
func DefaultOutputPath(config *cloud.Config, input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	format := config.Media.OutputFormat
	if format == "" {
		format = cloud.DefaultOutputFormat
	}
	return filepath.Join(config.Media.OutputDir, commands.EditedObjectPrefix+stem+"."+format)
}

// Process edits input into output, which defaults to DefaultOutputPath. The
// returned error is the first fatal error of the run, also held in
// Result.Err. On failure no file exists at the output path and the work
// directory has been removed.
func (w *VideoEditWorkflow) Process(ctx goctx.Context, input string, output string) (*Result, error) {
	if output == "" {
		output = DefaultOutputPath(w.config, input)
	}
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	if abs, err := filepath.Abs(input); err == nil && abs == output {
		return &Result{Input: input, FailedSegment: -1}, fmt.Errorf("output %s would overwrite the input", output)
	}

	run := model.NewEditRun(input)
	run.Model = w.modelName

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(commands.ParamSourcePath, input)
	chainCtx.Add(commands.ParamEditRun, run)
	if !w.dryRun {
		chainCtx.Add(commands.ParamOutputPath, output)
	}

	w.Execute(chainCtx)
	result := Summarize(chainCtx, run)
	chainCtx.Close()

	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

// Summarize reads the outcome of a run from its context and completes the
// run record.
func Summarize(context cor.Context, run *model.EditRun) *Result {
	result := &Result{RunId: run.RunId, Input: run.InputPath, FailedSegment: -1, Run: run}

	if a, ok := context.Get(commands.ParamAnalysis).(*model.AnalysisResult); ok {
		result.Analysis = a
	}
	if s, ok := context.Get(commands.ParamSegments).([]*model.EditSegment); ok {
		result.Segments = s
	}
	if tl, ok := context.Get(commands.ParamTimeline).(*model.Timeline); ok {
		result.Timeline = tl
		result.Output = tl.OutputPath
		result.SegmentsProcessed = len(tl.Entries)
	}

	if err := context.FirstError(); err != nil {
		result.Err = err
		result.ErrorKind = editing.KindOf(err)
		if seg, ts, ok := editing.Details(err); ok {
			result.FailedSegment = seg
			if !math.IsNaN(ts) {
				result.FailedAt = ts
			}
		}
		// A failed run never reports an output.
		result.Output = ""
		result.Timeline = nil
		result.SegmentsProcessed = 0
		run.Status = model.RunStatusFailed
		run.ErrorKind = result.ErrorKind
		run.ErrorDetail = err.Error()
		run.OutputPath = ""
		return result
	}

	result.Success = true
	run.Status = model.RunStatusSucceeded
	return result
}
