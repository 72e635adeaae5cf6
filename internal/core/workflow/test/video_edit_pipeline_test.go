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
package workflow_test

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/commands"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-editor/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// recorder stands in for the download and edit steps.
type recorder struct {
	cor.BaseCommand
	runs int
	fail error
}

func (r *recorder) IsExecutable(context cor.Context) bool { return true }

func (r *recorder) Execute(context cor.Context) {
	r.runs++
	context.Add(commands.ParamEditRun, model.NewEditRun("gs://in/uploads/test-clip-001.mp4"))
	if r.fail != nil {
		r.Fail(context, r.fail)
	}
}

func newPipeline(edit *recorder) *workflow.VideoEditPipeline {
	intake := cor.NewBaseChain("intake").AddCommand(commands.NewVideoTriggerToGCSObject("trigger"))
	chain := cor.NewBaseChain("edit").AddCommand(edit)
	return workflow.NewVideoEditPipelineFromCommands(intake, chain, nil)
}

func runMessage(p *workflow.VideoEditPipeline, msg string) cor.Context {
	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	c.Add(cor.CtxIn, msg)
	p.Execute(c)
	c.Close()
	return c
}

func TestPipelineRunsForUploads(t *testing.T) {
	edit := &recorder{BaseCommand: *cor.NewBaseCommand("edit-step")}
	c := runMessage(newPipeline(edit), test.GetTestUploadMessageText())

	assert.False(t, c.HasErrors())
	assert.Equal(t, 1, edit.runs)
	run := c.Get(commands.ParamEditRun).(*model.EditRun)
	assert.Equal(t, model.RunStatusSucceeded, run.Status)
}

func TestPipelineIgnoresEditedOutputs(t *testing.T) {
	edit := &recorder{BaseCommand: *cor.NewBaseCommand("edit-step")}
	msg := `{"bucket": "video_editor_output", "name": "uploads/enhanced_test-clip-001.mp4", "contentType": "video/mp4"}`
	c := runMessage(newPipeline(edit), msg)

	assert.False(t, c.HasErrors(), "the message must be acknowledged")
	assert.Equal(t, 0, edit.runs)
}

func TestPipelineMarksFailedRuns(t *testing.T) {
	edit := &recorder{BaseCommand: *cor.NewBaseCommand("edit-step"), fail: assert.AnError}
	c := runMessage(newPipeline(edit), test.GetTestUploadMessageText())

	assert.True(t, c.HasErrors(), "failed runs stay unacknowledged")
	run := c.Get(commands.ParamEditRun).(*model.EditRun)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, "Unknown", run.ErrorKind)
}
