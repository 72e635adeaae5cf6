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
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
)

// VideoProbe opens the source video read-only, checks that it is a video
// container and reads its duration, frame rate and geometry.
type VideoProbe struct {
	cor.BaseCommand
	media media.Processor
}

// NewVideoProbe creates the probe step. The input parameter holds the local
// path of the source.
func NewVideoProbe(name string, processor media.Processor) *VideoProbe {
	out := &VideoProbe{BaseCommand: *cor.NewBaseCommand(name), media: processor}
	out.InputParamName = ParamSourcePath
	out.OutputParamName = ParamVideoAsset
	return out
}

// Execute probes the file and stores the *model.VideoAsset. Unreadable or
// undecodable sources are an ExtractionError.
func (c *VideoProbe) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)

	info, err := os.Stat(path)
	if err != nil {
		c.Fail(context, editing.NewError(editing.ErrExtraction, fmt.Errorf("cannot open source: %w", err)))
		return
	}
	if info.IsDir() {
		c.Fail(context, editing.NewError(editing.ErrExtraction, fmt.Errorf("%s is a directory", path)))
		return
	}

	mimeType, err := media.DetectVideoMIME(path)
	if err != nil {
		c.Fail(context, editing.NewError(editing.ErrExtraction, err))
		return
	}

	asset, err := c.media.Probe(context.GetContext(), path)
	if err != nil {
		if context.GetContext().Err() != nil {
			c.Fail(context, context.GetContext().Err())
			return
		}
		c.Fail(context, editing.NewError(editing.ErrExtraction, err))
		return
	}
	asset.MIMEType = mimeType

	if run, ok := context.Get(ParamEditRun).(*model.EditRun); ok {
		run.DurationSeconds = asset.Duration
	}

	slog.InfoContext(context.GetContext(), "probed source video",
		"path", path,
		"duration", asset.Duration,
		"fps", asset.FrameRate,
		"width", asset.Width,
		"height", asset.Height,
		"audio", asset.HasAudio)

	c.Succeed(context)
	context.Add(c.GetOutputParam(), asset)
	context.Add(cor.CtxOut, asset)
}
