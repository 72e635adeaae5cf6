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
//go:build integration

// Package steps binds the editing feature to the planner and the edit
// workflow. Media work runs on testutil.FakeProcessor and the model is a
// canned reply, so the scenarios need neither ffmpeg nor Vertex AI.
package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-video-editor/internal/testutil"
)

type editingContext struct {
	dir       string
	duration  float64
	windows   []model.RawWindow
	processor *test.FakeProcessor
	asset     *model.VideoAsset
	config    *cloud.Config

	segments []*model.EditSegment
	result   *workflow.Result
	err      error
}

var state *editingContext

// InitializeEditingScenario registers the steps and resets the state before
// each scenario.
func InitializeEditingScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, _ *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "editing-feature-")
		if err != nil {
			return c, err
		}
		state = &editingContext{dir: dir}
		return c, nil
	})
	ctx.After(func(c context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if state != nil {
			_ = os.RemoveAll(state.dir)
		}
		return c, nil
	})

	ctx.Step(`^a video of ([\d.]+) seconds$`, aVideoOf)
	ctx.Step(`^a source video of ([\d.]+) seconds at (\d+) fps$`, aSourceVideo)
	ctx.Step(`^frames can only be decoded up to ([\d.]+) seconds$`, framesDecodableUntil)
	ctx.Step(`^the analysis suggests the windows:$`, theAnalysisSuggests)
	ctx.Step(`^the segments are planned$`, theSegmentsArePlanned)
	ctx.Step(`^the video is edited$`, theVideoIsEdited)
	ctx.Step(`^the plan covers the whole video without gaps$`, thePlanCoversTheVideo)
	ctx.Step(`^the plan is:$`, thePlanIs)
	ctx.Step(`^the run fails with "([^"]+)"$`, theRunFailsWith)
	ctx.Step(`^no output file is written$`, noOutputFile)
	ctx.Step(`^the work directory is removed$`, theWorkDirectoryIsRemoved)
	ctx.Step(`^nothing was stitched$`, nothingWasStitched)
}

func aVideoOf(duration float64) error {
	state.duration = duration
	return nil
}

func aSourceVideo(duration float64, fps int) error {
	asset, err := test.NewFakeAsset(state.dir, duration, float64(fps))
	if err != nil {
		return err
	}
	state.duration = duration
	state.asset = asset
	state.processor = &test.FakeProcessor{Asset: asset}

	config := cloud.NewConfig()
	config.Application.ThreadPoolSize = 2
	config.Media.WorkDir = filepath.Join(state.dir, "work")
	config.Media.OutputDir = filepath.Join(state.dir, "output")
	config.Retry = cloud.Retry{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	state.config = config
	return nil
}

func framesDecodableUntil(t float64) error {
	if state.processor == nil {
		return errors.New("no source video")
	}
	state.processor.DecodableUntil = t
	return nil
}

func theAnalysisSuggests(table *godog.Table) error {
	state.windows = nil
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		start, err := strconv.ParseFloat(row.Cells[0].Value, 64)
		if err != nil {
			return err
		}
		end, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return err
		}
		w := model.RawWindow{StartSeconds: start, EndSeconds: end, Type: row.Cells[2].Value}
		switch model.EditKind(w.Type) {
		case model.KindTextOverlay:
			w.Text = "Caption"
		case model.KindEffectEnhancement:
			w.Effect = "brightness"
		}
		state.windows = append(state.windows, w)
	}
	return nil
}

func theSegmentsArePlanned() error {
	state.segments, state.err = editing.Plan(state.duration, state.windows)
	return state.err
}

func theVideoIsEdited() error {
	reply, err := json.Marshal(map[string]any{"frames_to_edit": state.windows})
	if err != nil {
		return err
	}
	gen := &test.FakeGenerator{Reply: string(reply)}
	editor, err := workflow.NewVideoEditWorkflow(state.config, state.processor, gen)
	if err != nil {
		return err
	}
	state.result, state.err = editor.Process(context.Background(), state.asset.Path, "")
	return nil
}

func thePlanCoversTheVideo() error {
	return editing.ValidatePartition(state.duration, state.segments)
}

func thePlanIs(table *godog.Table) error {
	want := len(table.Rows) - 1
	if len(state.segments) != want {
		return fmt.Errorf("expected %d segments, got %d", want, len(state.segments))
	}
	for i, row := range table.Rows[1:] {
		seg := state.segments[i]
		start, _ := strconv.ParseFloat(row.Cells[0].Value, 64)
		end, _ := strconv.ParseFloat(row.Cells[1].Value, 64)
		kind := model.EditKind(row.Cells[2].Value)
		if math.Abs(seg.Start-start) > model.TimeEpsilon || math.Abs(seg.End-end) > model.TimeEpsilon || seg.Kind != kind {
			return fmt.Errorf("segment %d: expected [%g, %g) %s, got %s", i, start, end, kind, seg)
		}
	}
	return nil
}

func theRunFailsWith(kind string) error {
	if state.err == nil {
		return errors.New("expected the run to fail")
	}
	if state.result == nil || state.result.ErrorKind != kind {
		return fmt.Errorf("expected %s, got %v", kind, state.err)
	}
	if state.result.Success {
		return errors.New("a failed run reported success")
	}
	return nil
}

func noOutputFile() error {
	out := workflow.DefaultOutputPath(state.config, state.asset.Path)
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		return fmt.Errorf("output %s exists", out)
	}
	if state.result.Output != "" {
		return fmt.Errorf("result reports output %s", state.result.Output)
	}
	return nil
}

func theWorkDirectoryIsRemoved() error {
	entries, err := os.ReadDir(state.config.Media.WorkDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("work directory still holds %s", entries[0].Name())
	}
	return nil
}

func nothingWasStitched() error {
	if copies := state.processor.Copies(); len(copies) > 0 {
		return fmt.Errorf("reconstruction ran: %v", copies)
	}
	if state.result.Timeline != nil {
		return errors.New("a timeline was produced")
	}
	return nil
}
