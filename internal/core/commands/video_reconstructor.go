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
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

// VideoReconstructor stitches the clips into the output file named by
// ParamOutputPath. Nothing is written there unless stitching succeeds.
type VideoReconstructor struct {
	cor.BaseCommand
	reconstructor *editing.Reconstructor
}

func NewVideoReconstructor(name string, reconstructor *editing.Reconstructor) *VideoReconstructor {
	out := &VideoReconstructor{BaseCommand: *cor.NewBaseCommand(name), reconstructor: reconstructor}
	out.InputParamName = ParamClips
	out.OutputParamName = ParamTimeline
	return out
}

func (r *VideoReconstructor) IsExecutable(context cor.Context) bool {
	return r.BaseCommand.IsExecutable(context) &&
		context.Get(ParamVideoAsset) != nil &&
		context.Get(ParamWorkDir) != nil &&
		context.Get(ParamOutputPath) != nil
}

func (r *VideoReconstructor) Execute(context cor.Context) {
	clips := context.Get(r.GetInputParam()).([]*model.EditedClip)
	asset := context.Get(ParamVideoAsset).(*model.VideoAsset)
	workDir := context.Get(ParamWorkDir).(string)
	output := context.Get(ParamOutputPath).(string)

	timeline, err := r.reconstructor.Reconstruct(context.GetContext(), asset, clips, workDir, output)
	if err != nil {
		r.Fail(context, err)
		return
	}

	if run, ok := context.Get(ParamEditRun).(*model.EditRun); ok {
		run.OutputPath = timeline.OutputPath
		run.OutputDurationSeconds = timeline.OutputDuration
	}
	slog.InfoContext(context.GetContext(), "output written",
		"path", timeline.OutputPath,
		"segments", len(timeline.Entries),
		"duration", timeline.OutputDuration)

	r.Succeed(context)
	context.Add(r.GetOutputParam(), timeline)
	context.Add(cor.CtxOut, timeline.OutputPath)
}
