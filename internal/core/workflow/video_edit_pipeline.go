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
package workflow

import (
	goctx "context"
	"log/slog"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
)

const persistCommandName = "write-edit-run-to-bigquery"

// VideoEditPipeline processes one input bucket notification. Notifications
// about the editor's own outputs are acknowledged without doing anything.
type VideoEditPipeline struct {
	cor.BaseCommand
	intake  cor.Chain
	chain   cor.Chain
	persist *commands.EditRunPersistToBigQuery
}

// NewVideoEditPipeline wires the edit workflow to Cloud Storage and BigQuery.
// Persistence is skipped when no BigQuery client is configured.
func NewVideoEditPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	processor media.Processor,
	agentModelName string) (*VideoEditPipeline, error) {

	generator, err := serviceClients.AgentModel(agentModelName)
	if err != nil {
		return nil, err
	}
	editor, err := NewVideoEditWorkflow(config, processor, generator,
		WithStorage(serviceClients.StorageClient),
		WithModelName(agentModelName))
	if err != nil {
		return nil, err
	}

	p := &VideoEditPipeline{BaseCommand: *cor.NewBaseCommand("video-edit-pipeline")}

	p.intake = cor.NewBaseChain("video-edit-intake").
		AddCommand(commands.NewVideoTriggerToGCSObject("video-trigger-to-gcs-object"))

	download := commands.NewGCSToTempFile("gcs-to-temp-file", serviceClients.StorageClient, "video-edit-")
	download.InputParamName = cloud.GetGCSObjectName()

	format := config.Media.OutputFormat
	if format == "" {
		format = cloud.DefaultOutputFormat
	}

	chain := cor.NewBaseChain(p.GetName())
	chain.AddCommand(download)
	chain.AddCommand(commands.NewEditRunStart("start-edit-run", config.Media.WorkDir, format, agentModelName))
	chain.AddCommand(editor)
	chain.AddCommand(commands.NewGCSFileUpload("upload-edited-video", serviceClients.StorageClient, config.Storage.OutputBucket))
	if serviceClients.BiqQueryClient != nil {
		p.persist = commands.NewEditRunPersistToBigQuery(
			persistCommandName,
			serviceClients.BiqQueryClient,
			config.BigQueryDataSource.DatasetName,
			config.BigQueryDataSource.RunsTable)
		chain.AddCommand(p.persist)
	}
	p.chain = chain
	return p, nil
}

// NewVideoEditPipelineFromCommands assembles a pipeline from prepared
// steps. Tests use it to run the intake without cloud clients.
func NewVideoEditPipelineFromCommands(intake cor.Chain, chain cor.Chain, persist *commands.EditRunPersistToBigQuery) *VideoEditPipeline {
	return &VideoEditPipeline{
		BaseCommand: *cor.NewBaseCommand("video-edit-pipeline"),
		intake:      intake,
		chain:       chain,
		persist:     persist,
	}
}

func (p *VideoEditPipeline) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(cor.CtxIn) != nil
}

// Execute runs intake and edit. Failed runs are persisted too, so the
// run table shows why an upload produced no output.
func (p *VideoEditPipeline) Execute(context cor.Context) {
	p.intake.Execute(context)
	if context.HasErrors() {
		return
	}
	if reason := context.Get(commands.ParamSkip); reason != nil {
		return
	}

	p.chain.Execute(context)

	run, ok := context.Get(commands.ParamEditRun).(*model.EditRun)
	if !ok {
		return
	}
	result := Summarize(context, run)
	if result.Success {
		return
	}
	slog.ErrorContext(context.GetContext(), "edit run failed",
		"run_id", run.RunId,
		"input", run.InputPath,
		"error_kind", result.ErrorKind,
		"segment", result.FailedSegment,
		"error", result.Err)

	if p.persist == nil {
		return
	}
	if _, failed := context.GetErrors()[persistCommandName]; failed {
		return
	}
	context.SetContext(goctx.WithoutCancel(context.GetContext()))
	if err := p.persist.Persist(context, run); err != nil {
		slog.ErrorContext(context.GetContext(), "failed to persist failed run", "run_id", run.RunId, "error", err)
	}
}
