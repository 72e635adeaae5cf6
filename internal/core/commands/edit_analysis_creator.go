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

// This file defines the command asking the generative model where the video
// should be edited.
//
// Logic Flow:
//  1. It receives the *genai.Part referencing the video and the probed asset.
//  2. It renders the prompt template with the video duration, a sampling
//     hint, the supported edit kinds and an example reply (few-shot prompting).
//  3. It sends video and prompt in one multi-modal request. Transient
//     failures are retried with backoff by cloud.GenerateMultiModalResponse.
//  4. It places the raw JSON reply into the context for AnalysisJsonToStruct.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"google.golang.org/genai"
)

// EditAnalysisCreator prompts the model for edit windows.
type EditAnalysisCreator struct {
	cor.BaseCommand
	config                   *cloud.Config
	generativeAIModel        cloud.ContentGenerator
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewEditAnalysisCreator is the constructor for the EditAnalysisCreator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - config: The application's configuration object.
//   - generativeAIModel: The model to query, usually a cloud.QuotaAwareGenerativeAIModel.
//   - template: A parsed Go template for the prompt.
func NewEditAnalysisCreator(
	name string,
	config *cloud.Config,
	generativeAIModel cloud.ContentGenerator,
	template *template.Template) *EditAnalysisCreator {

	out := &EditAnalysisCreator{
		BaseCommand:       *cor.NewBaseCommand(name),
		config:            config,
		generativeAIModel: generativeAIModel,
		template:          template}
	out.InputParamName = GetVideoUploadFileParameterName()

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.retry", out.GetName()))

	return out
}

func (t *EditAnalysisCreator) IsExecutable(context cor.Context) bool {
	return t.BaseCommand.IsExecutable(context) && context.Get(ParamVideoAsset) != nil
}

// GenerateParams creates the values substituted into the prompt template.
func (t *EditAnalysisCreator) GenerateParams(asset *model.VideoAsset) map[string]interface{} {
	params := make(map[string]interface{})
	params["DURATION"] = fmt.Sprintf("%.2f", asset.Duration)

	interval := t.config.Media.FrameIntervalSeconds
	if interval <= 0 {
		interval = cloud.DefaultFrameIntervalSeconds
	}
	samples := int(math.Ceil(asset.Duration / interval))
	params["SAMPLING_HINTS"] = fmt.Sprintf("consider one frame every %.1f seconds (about %d frames); the video runs at %.2f fps", interval, samples, asset.FrameRate)

	params["ENHANCEMENT_TYPES"] = strings.Join([]string{
		string(model.KindTextOverlay),
		string(model.KindEffectEnhancement),
		string(model.KindSceneTransition),
	}, ", ")

	example, _ := json.MarshalIndent(model.GetExampleAnalysis(), "", "  ")
	params["EXAMPLE_JSON"] = string(example)
	return params
}

// Execute runs the analysis request. Every failure is an AnalysisError.
func (t *EditAnalysisCreator) Execute(context cor.Context) {
	videoPart := context.Get(t.GetInputParam()).(*genai.Part)
	asset := context.Get(ParamVideoAsset).(*model.VideoAsset)

	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(asset)); err != nil {
		t.Fail(context, editing.NewError(editing.ErrAnalysis, fmt.Errorf("failed to execute prompt template: %w", err)))
		return
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{videoPart, cloud.NewTextPart(buffer.String())},
		},
	}

	out, err := cloud.GenerateMultiModalResponse(
		context.GetContext(),
		t.geminiInputTokenCounter,
		t.geminiOutputTokenCounter,
		t.geminiRetryCounter,
		t.config.Retry,
		t.generativeAIModel,
		contents)
	if err != nil {
		if context.GetContext().Err() != nil {
			t.Fail(context, context.GetContext().Err())
			return
		}
		t.Fail(context, editing.NewError(editing.ErrAnalysis, fmt.Errorf("gemini request failed: %w", err)))
		return
	}

	t.Succeed(context)
	context.Add(t.GetOutputParam(), out)
}
