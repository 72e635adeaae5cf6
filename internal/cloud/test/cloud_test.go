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

package cloud_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"google.golang.org/genai"
)

const baseTOML = `
[application]
name = "video-editor"
google_project_id = "test-project"
location = "us-central1"
thread_pool_size = 2

[storage]
input_bucket = "video_editor_input"
output_bucket = "video_editor_output"

[media]
output_format = "mov"
max_frames = 900

[retry]
max_retries = 2
initial_backoff = "1ms"

[agent_models.analysis-pro]
model = "gemini-1.5-pro"
temperature = 0.2
rate_limit = 3
`

const overrideTOML = `
[application]
thread_pool_size = 8

[media]
keep_work_dir = true
`

func TestLoadConfigLayersFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(baseTOML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local.toml"), []byte(overrideTOML), 0o644))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "local")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))

	assert.Equal(t, "test-project", config.Application.GoogleProjectId)
	assert.Equal(t, 8, config.Application.ThreadPoolSize)
	assert.Equal(t, "mov", config.Media.OutputFormat)
	assert.Equal(t, 900, config.Media.MaxFrames)
	assert.True(t, config.Media.KeepWorkDir)
	// Untouched defaults survive.
	assert.Equal(t, cloud.DefaultVideoCodec, config.Media.VideoCodec)
	assert.Equal(t, 2, config.Retry.MaxRetries)
	assert.Equal(t, time.Millisecond, config.Retry.InitialBackoff)
	assert.Equal(t, 30*time.Second, config.Retry.MaxBackoff)

	pro := config.AgentModel("analysis-pro")
	assert.Equal(t, "gemini-1.5-pro", pro.Model)
	assert.Equal(t, float32(0.2), pro.Temperature)
	fallback := config.AgentModel("missing")
	assert.Equal(t, cloud.DefaultModelName, fallback.Model)
	assert.Equal(t, float32(cloud.DefaultTemperature), fallback.Temperature)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte("[application\nname="), 0o644))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "test")

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

type flakyGenerator struct {
	failures int
	calls    int
	text     string
}

func (f *flakyGenerator) GenerateContent(_ context.Context, _ []*genai.Content) (*genai.GenerateContentResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("503 service unavailable")
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     100,
			CandidatesTokenCount: 20,
		},
	}, nil
}

func counters(t *testing.T) (metric.Int64Counter, metric.Int64Counter, metric.Int64Counter) {
	meter := noop.NewMeterProvider().Meter("test")
	in, err := meter.Int64Counter("in")
	require.NoError(t, err)
	out, err := meter.Int64Counter("out")
	require.NoError(t, err)
	retry, err := meter.Int64Counter("retry")
	require.NoError(t, err)
	return in, out, retry
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	in, out, retries := counters(t)
	gen := &flakyGenerator{failures: 2, text: "```json\n{\"frames_to_edit\": []}\n```"}
	policy := cloud.Retry{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	value, err := cloud.GenerateMultiModalResponse(context.Background(), in, out, retries, policy, gen,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{cloud.NewTextPart("hi")}}})
	require.NoError(t, err)
	assert.Equal(t, `{"frames_to_edit": []}`, value)
	assert.Equal(t, 3, gen.calls)
}

func TestGenerateGivesUpAfterMaxRetries(t *testing.T) {
	in, out, retries := counters(t)
	gen := &flakyGenerator{failures: 10}
	policy := cloud.Retry{MaxRetries: 2, InitialBackoff: time.Millisecond}

	_, err := cloud.GenerateMultiModalResponse(context.Background(), in, out, retries, policy, gen, nil)
	require.Error(t, err)
	assert.Equal(t, 3, gen.calls)
}

func TestGenerateStopsOnCancel(t *testing.T) {
	in, out, retries := counters(t)
	gen := &flakyGenerator{failures: 10}
	policy := cloud.Retry{MaxRetries: 5, InitialBackoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := cloud.GenerateMultiModalResponse(ctx, in, out, retries, policy, gen, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}

func TestGCSNames(t *testing.T) {
	obj, err := cloud.ParseGCSURI("gs://bucket/uploads/clip.final.mp4")
	require.NoError(t, err)
	assert.Equal(t, "bucket", obj.Bucket)
	assert.Equal(t, "uploads/clip.final.mp4", obj.Name)
	assert.Equal(t, "gs://bucket/uploads/clip.final.mp4", obj.URI())

	assert.Equal(t, "uploads/enhanced_clip.final.mp4", cloud.EditedObjectName("uploads/clip.final.mov", "mp4"))
	assert.Equal(t, "enhanced_clip.mp4", cloud.EditedObjectName("clip.mp4", "mp4"))

	_, err = cloud.ParseGCSURI("https://example.com/x")
	assert.Error(t, err)
}
