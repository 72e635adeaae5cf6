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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

// AnalysisJsonToStruct parses the model reply into a *model.AnalysisResult.
type AnalysisJsonToStruct struct {
	cor.BaseCommand
}

func NewAnalysisJsonToStruct(name string) *AnalysisJsonToStruct {
	out := AnalysisJsonToStruct{BaseCommand: *cor.NewBaseCommand(name)}
	out.OutputParamName = ParamAnalysis
	return &out
}

// ParseAnalysis decodes a reply, tolerating a surrounding code fence.
func ParseAnalysis(in string) (*model.AnalysisResult, error) {
	text := cloud.TrimCodeFence(in)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty analysis reply")
	}
	doc := &model.AnalysisResult{}
	if err := json.Unmarshal([]byte(text), doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis JSON: %w", err)
	}
	doc.Raw = text
	return doc, nil
}

func (s *AnalysisJsonToStruct) Execute(context cor.Context) {
	in := context.Get(s.GetInputParam()).(string)

	doc, err := ParseAnalysis(in)
	if err != nil {
		s.Fail(context, editing.NewError(editing.ErrAnalysis, err))
		return
	}
	slog.InfoContext(context.GetContext(), "analysis received",
		"windows", len(doc.Windows),
		"text_suggestions", len(doc.TextOverlaySuggestions),
		"effect_recommendations", len(doc.EffectRecommendations))

	s.Succeed(context)
	context.Add(s.GetOutputParam(), doc)
	context.Add(cor.CtxOut, doc)
}
