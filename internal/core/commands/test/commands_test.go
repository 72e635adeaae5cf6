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
package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/template"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	test "github.com/jaycherian/gcp-go-video-editor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newContext(t *testing.T) cor.Context {
	t.Helper()
	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	t.Cleanup(c.Close)
	return c
}

func TestTriggerReaderDecodesNotification(t *testing.T) {
	c := newContext(t)
	c.Add(cor.CtxIn, test.GetTestUploadMessageText())

	commands.NewVideoTriggerToGCSObject("trigger").Execute(c)
	require.False(t, c.HasErrors())

	obj := c.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
	assert.Equal(t, "video_editor_input", obj.Bucket)
	assert.Equal(t, "uploads/test-clip-001.mp4", obj.Name)
	assert.Equal(t, "video/mp4", obj.MIMEType)
	assert.Nil(t, c.Get(commands.ParamSkip))
}

func TestTriggerReaderSkipsEditedOutputs(t *testing.T) {
	for name, body := range map[string]string{
		"edited":  `{"bucket": "b", "name": "uploads/enhanced_clip.mp4", "contentType": "video/mp4"}`,
		"folder":  `{"bucket": "b", "name": "uploads/"}`,
		"picture": `{"bucket": "b", "name": "uploads/cover.png", "contentType": "image/png"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newContext(t)
			c.Add(cor.CtxIn, body)
			commands.NewVideoTriggerToGCSObject("trigger").Execute(c)
			assert.False(t, c.HasErrors())
			assert.NotNil(t, c.Get(commands.ParamSkip))
			assert.Nil(t, c.Get(cloud.GetGCSObjectName()))
		})
	}
}

func TestTriggerReaderRejectsJunk(t *testing.T) {
	for _, body := range []string{"not json", `{"name": "x.mp4"}`} {
		c := newContext(t)
		c.Add(cor.CtxIn, body)
		commands.NewVideoTriggerToGCSObject("trigger").Execute(c)
		assert.True(t, c.HasErrors(), body)
	}
}

func TestParseAnalysis(t *testing.T) {
	doc, err := commands.ParseAnalysis("```json\n{\"frames_to_edit\": [{\"start\": 1, \"end\": 2, \"type\": \"text_overlay\"}, 5]}\n```")
	require.NoError(t, err)
	require.Len(t, doc.Windows, 2)
	assert.Equal(t, "text_overlay", doc.Windows[0].Type)
	assert.Equal(t, string(model.KindEffectEnhancement), doc.Windows[1].Type)
	assert.NotEmpty(t, doc.Raw)

	_, err = commands.ParseAnalysis("   ")
	assert.Error(t, err)
	_, err = commands.ParseAnalysis("{\"frames_to_edit\": \"soon\"}")
	assert.Error(t, err)
}

func TestAnalysisJsonToStructFailsAsAnalysisError(t *testing.T) {
	c := newContext(t)
	c.Add(cor.CtxIn, "<html>quota exceeded</html>")
	commands.NewAnalysisJsonToStruct("convert").Execute(c)

	require.True(t, c.HasErrors())
	assert.ErrorIs(t, c.FirstError(), editing.ErrAnalysis)
	assert.Nil(t, c.Get(commands.ParamAnalysis))
}

func TestGenerateParams(t *testing.T) {
	config := cloud.NewConfig()
	config.Media.FrameIntervalSeconds = 2
	tmpl := template.Must(template.New("t").Parse(config.PromptTemplates.AnalysisPrompt))
	creator := commands.NewEditAnalysisCreator("analysis", config, &test.FakeGenerator{}, tmpl)

	params := creator.GenerateParams(&model.VideoAsset{Duration: 9, FrameRate: 25})
	assert.Equal(t, "9.00", params["DURATION"])
	assert.Contains(t, params["SAMPLING_HINTS"], "about 5 frames")
	assert.Equal(t, "text_overlay, effect_enhancement, scene_transition", params["ENHANCEMENT_TYPES"])
	assert.Contains(t, params["EXAMPLE_JSON"], "frames_to_edit")
}

func TestEditAnalysisCreatorSendsVideoAndPrompt(t *testing.T) {
	config := cloud.NewConfig()
	config.Retry.MaxRetries = 0
	tmpl := template.Must(template.New("t").Parse(config.PromptTemplates.AnalysisPrompt))
	gen := &test.FakeGenerator{Reply: `{"frames_to_edit": []}`}

	c := newContext(t)
	c.Add(commands.ParamVideoAsset, &model.VideoAsset{Duration: 12.5, FrameRate: 30})
	c.Add(commands.GetVideoUploadFileParameterName(), cloud.NewFileData("gs://in/clip.mp4", "video/mp4"))

	cmd := commands.NewEditAnalysisCreator("analysis", config, gen, tmpl)
	require.True(t, cmd.IsExecutable(c))
	cmd.Execute(c)

	require.False(t, c.HasErrors())
	assert.Equal(t, `{"frames_to_edit": []}`, c.Get(cor.CtxOut))
	assert.Contains(t, gen.LastPrompt(), "12.50")
}

func TestVideoUploadFallsBackToInlineData(t *testing.T) {
	asset, err := test.NewFakeAsset(t.TempDir(), 3, 10)
	require.NoError(t, err)

	c := newContext(t)
	c.Add(commands.ParamVideoAsset, asset)
	commands.NewVideoUpload("upload", nil, "").Execute(c)

	require.False(t, c.HasErrors())
	part := c.Get(commands.GetVideoUploadFileParameterName()).(*genai.Part)
	require.NotNil(t, part.InlineData)
	assert.Equal(t, "video/mp4", part.InlineData.MIMEType)
	assert.Nil(t, c.Get(commands.GetVideoUploadObjectParameterName()))
}

func TestVideoUploadUsesTriggeringObject(t *testing.T) {
	asset, err := test.NewFakeAsset(t.TempDir(), 3, 10)
	require.NoError(t, err)

	c := newContext(t)
	c.Add(commands.ParamVideoAsset, asset)
	c.Add(cloud.GetGCSObjectName(), &cloud.GCSObject{Bucket: "in", Name: "uploads/a.mp4"})
	commands.NewVideoUpload("upload", nil, "").Execute(c)

	part := c.Get(commands.GetVideoUploadFileParameterName()).(*genai.Part)
	require.NotNil(t, part.FileData)
	assert.Equal(t, "gs://in/uploads/a.mp4", part.FileData.FileURI)
}

func TestVideoUploadRejectsLargeInlineVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.mp4")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.NoError(t, os.Truncate(path, commands.MaxInlineVideoBytes+1))

	c := newContext(t)
	c.Add(commands.ParamVideoAsset, &model.VideoAsset{Path: path, MIMEType: "video/mp4"})
	commands.NewVideoUpload("upload", nil, "").Execute(c)

	assert.ErrorIs(t, c.FirstError(), editing.ErrAnalysis)
}

func TestVideoProbeRejectsNonVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mp4")
	require.NoError(t, os.WriteFile(path, []byte("just some text"), 0o644))

	c := newContext(t)
	c.Add(commands.ParamSourcePath, path)
	commands.NewVideoProbe("probe", &test.FakeProcessor{}).Execute(c)

	assert.ErrorIs(t, c.FirstError(), editing.ErrExtraction)
	assert.Nil(t, c.Get(commands.ParamVideoAsset))
}

func TestVideoProbeRecordsDuration(t *testing.T) {
	asset, err := test.NewFakeAsset(t.TempDir(), 7.5, 24)
	require.NoError(t, err)
	run := model.NewEditRun(asset.Path)

	c := newContext(t)
	c.Add(commands.ParamSourcePath, asset.Path)
	c.Add(commands.ParamEditRun, run)
	commands.NewVideoProbe("probe", &test.FakeProcessor{Asset: asset}).Execute(c)

	require.False(t, c.HasErrors())
	got := c.Get(commands.ParamVideoAsset).(*model.VideoAsset)
	assert.Equal(t, "video/mp4", got.MIMEType)
	assert.Equal(t, 7.5, run.DurationSeconds)
}

func TestRunWorkDirIsRemovedOnClose(t *testing.T) {
	parent := t.TempDir()
	run := model.NewEditRun("in.mp4")

	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	c.Add(commands.ParamVideoAsset, &model.VideoAsset{})
	c.Add(commands.ParamEditRun, run)
	commands.NewRunWorkDir("workdir", parent, false).Execute(c)

	dir := c.Get(commands.ParamWorkDir).(string)
	assert.Equal(t, filepath.Join(parent, "run-"+run.RunId), dir)
	assert.DirExists(t, dir)

	c.Close()
	assert.NoDirExists(t, dir)
}

func TestRunWorkDirKeep(t *testing.T) {
	parent := t.TempDir()
	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	c.Add(commands.ParamVideoAsset, &model.VideoAsset{})
	commands.NewRunWorkDir("workdir", parent, true).Execute(c)

	dir := c.Get(commands.ParamWorkDir).(string)
	c.Close()
	assert.DirExists(t, dir)
}

func TestSegmentPlannerFillsRunRecord(t *testing.T) {
	run := model.NewEditRun("in.mp4")
	c := newContext(t)
	c.Add(commands.ParamVideoAsset, &model.VideoAsset{Duration: 6, FrameRate: 10})
	c.Add(commands.ParamEditRun, run)
	c.Add(commands.ParamAnalysis, &model.AnalysisResult{Windows: []model.RawWindow{
		{StartSeconds: 1, EndSeconds: 3, Type: "text_overlay", Text: "hi"},
	}})

	commands.NewSegmentPlanner("plan").Execute(c)
	require.False(t, c.HasErrors())

	segments := c.Get(commands.ParamSegments).([]*model.EditSegment)
	require.Len(t, segments, 3)
	require.Len(t, run.Segments, 3)
	assert.Equal(t, "text_overlay", run.Segments[1].Kind)
}

func TestSegmentPlannerZeroDuration(t *testing.T) {
	c := newContext(t)
	c.Add(commands.ParamVideoAsset, &model.VideoAsset{})
	c.Add(commands.ParamAnalysis, &model.AnalysisResult{})
	commands.NewSegmentPlanner("plan").Execute(c)
	assert.ErrorIs(t, c.FirstError(), editing.ErrEmptyPlan)
}

func TestAnalysisUploadCleanupPassesInputThrough(t *testing.T) {
	c := newContext(t)
	c.Add(cor.CtxIn, "reply")
	cmd := commands.NewAnalysisUploadCleanup("cleanup", nil)
	require.True(t, cmd.IsExecutable(c))
	cmd.Execute(c)
	assert.False(t, c.HasErrors())
	assert.Equal(t, "reply", c.Get(cor.CtxOut))
}

func TestEditRunStartNamesOutput(t *testing.T) {
	c := newContext(t)
	c.Add(commands.ParamSourcePath, "/tmp/video-edit-123.mp4")
	c.Add(cloud.GetGCSObjectName(), &cloud.GCSObject{Bucket: "in", Name: "uploads/holiday.mov"})

	commands.NewEditRunStart("start", t.TempDir(), "mp4", "analysis-flash").Execute(c)
	require.False(t, c.HasErrors())

	run := c.Get(commands.ParamEditRun).(*model.EditRun)
	assert.Equal(t, "gs://in/uploads/holiday.mov", run.InputPath)
	assert.Equal(t, "analysis-flash", run.Model)
	output := c.Get(commands.ParamOutputPath).(string)
	assert.Equal(t, "enhanced_holiday.mp4", filepath.Base(output))
	assert.True(t, strings.HasPrefix(filepath.Base(filepath.Dir(output)), "edited-"))
}
