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

// SegmentPlanner turns the analysis into the ordered segment plan covering
// the whole video.
type SegmentPlanner struct {
	cor.BaseCommand
}

func NewSegmentPlanner(name string) *SegmentPlanner {
	out := &SegmentPlanner{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamAnalysis
	out.OutputParamName = ParamSegments
	return out
}

func (p *SegmentPlanner) IsExecutable(context cor.Context) bool {
	return p.BaseCommand.IsExecutable(context) && context.Get(ParamVideoAsset) != nil
}

func (p *SegmentPlanner) Execute(context cor.Context) {
	analysis := context.Get(p.GetInputParam()).(*model.AnalysisResult)
	asset := context.Get(ParamVideoAsset).(*model.VideoAsset)

	segments, err := editing.PlanAnalysis(asset.Duration, analysis)
	if err != nil {
		p.Fail(context, err)
		return
	}

	edited := 0
	for _, s := range segments {
		if s.Kind != model.KindUnedited {
			edited++
		}
		slog.DebugContext(context.GetContext(), "planned segment", "segment", s.String())
	}
	slog.InfoContext(context.GetContext(), "segment plan ready", "segments", len(segments), "edited", edited)

	if run, ok := context.Get(ParamEditRun).(*model.EditRun); ok {
		run.SetSegments(segments)
	}

	p.Succeed(context)
	context.Add(p.GetOutputParam(), segments)
	context.Add(cor.CtxOut, segments)
}
