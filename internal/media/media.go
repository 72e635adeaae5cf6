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

// Package media wraps the external ffmpeg and ffprobe binaries. The editing
// core only sees the Processor interface: it never decodes or encodes video
// itself, it asks the processor for still frames and hands edited stills back
// to be encoded.
package media

import (
	"context"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

// Processor is the media collaborator used by the editing pipeline.
type Processor interface {
	// Probe reads duration, frame rate, geometry and codecs of a file.
	Probe(ctx context.Context, path string) (*model.VideoAsset, error)
	// ExtractFrameAt writes the frame shown at t as a PNG.
	ExtractFrameAt(ctx context.Context, asset *model.VideoAsset, t float64, output string) error
	// ExtractFrames writes count consecutive frames starting at frame index
	// first into dir, returning the PNG paths in presentation order.
	ExtractFrames(ctx context.Context, asset *model.VideoAsset, first int, count int, dir string) ([]string, error)
	// FramesToClip encodes still images into a clip with the source audio of
	// the clip's range.
	FramesToClip(ctx context.Context, spec ClipSpec) error
	// CopyRange writes [start, end) of the source to output. When reencode is
	// false the streams are copied, which is exact only from a keyframe.
	CopyRange(ctx context.Context, asset *model.VideoAsset, start float64, end float64, output string, reencode bool) error
	// Keyframes lists the keyframe times of the video stream, ascending.
	Keyframes(ctx context.Context, asset *model.VideoAsset) ([]float64, error)
	// Concat joins clips that share codec parameters into output.
	Concat(ctx context.Context, clips []string, output string) error
}

// ClipSpec describes an encode of still frames.
type ClipSpec struct {
	Frames []string
	// FrameRate of the output. Each frame is shown for 1/FrameRate seconds
	// unless HoldSeconds is set.
	FrameRate float64
	// HoldSeconds shows a single frame for the given time.
	HoldSeconds float64
	// Source supplies the audio track, read from AudioStart.
	Source     *model.VideoAsset
	AudioStart float64
	Mute       bool
	Output     string
}

// Duration is the playing time of the encoded clip.
func (s ClipSpec) Duration() float64 {
	if s.HoldSeconds > 0 {
		return s.HoldSeconds
	}
	if s.FrameRate <= 0 {
		return 0
	}
	return float64(len(s.Frames)) / s.FrameRate
}
