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

// SegmentRenderer extracts and edits every planned segment on the bounded
// worker pool of an editing.Renderer. The clips come back in plan order.
type SegmentRenderer struct {
	cor.BaseCommand
	renderer *editing.Renderer
}

func NewSegmentRenderer(name string, renderer *editing.Renderer) *SegmentRenderer {
	out := &SegmentRenderer{BaseCommand: *cor.NewBaseCommand(name)}
	out.renderer = renderer.WithTracer(out.GetTracer())
	out.InputParamName = ParamSegments
	out.OutputParamName = ParamClips
	return out
}

func (r *SegmentRenderer) IsExecutable(context cor.Context) bool {
	return r.BaseCommand.IsExecutable(context) &&
		context.Get(ParamVideoAsset) != nil &&
		context.Get(ParamWorkDir) != nil
}

func (r *SegmentRenderer) Execute(context cor.Context) {
	segments := context.Get(r.GetInputParam()).([]*model.EditSegment)
	asset := context.Get(ParamVideoAsset).(*model.VideoAsset)
	workDir := context.Get(ParamWorkDir).(string)

	slog.InfoContext(context.GetContext(), "rendering segments", "segments", len(segments), "workers", r.renderer.Workers())
	clips, err := r.renderer.Render(context.GetContext(), asset, segments, workDir)
	if err != nil {
		r.Fail(context, err)
		return
	}

	r.Succeed(context)
	context.Add(r.GetOutputParam(), clips)
	context.Add(cor.CtxOut, clips)
}
