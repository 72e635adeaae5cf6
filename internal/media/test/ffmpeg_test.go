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
package media_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSource encodes a 2 second, 10 fps clip whose frame N has luma 10*N,
// losslessly, with a keyframe every 5 frames and a sine audio track.
func newSource(t *testing.T) (*media.FFmpeg, *model.VideoAsset) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed", bin)
		}
	}
	processor, err := media.NewFFmpeg(media.Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "source.mp4")
	cmd := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi", "-i", "color=c=black:s=32x32:r=10:d=2,format=yuv420p,geq=lum=N*10:cb=128:cr=128",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=2",
		"-c:v", "libx264", "-qp", "0", "-g", "5", "-bf", "0", "-sc_threshold", "0", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot encode test source: %v: %s", err, out)
	}

	asset, err := processor.Probe(context.Background(), path)
	require.NoError(t, err)
	return processor, asset
}

func frameAt(t *testing.T, processor *media.FFmpeg, asset *model.VideoAsset, ts float64) []byte {
	t.Helper()
	out := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, processor.ExtractFrameAt(context.Background(), asset, ts, out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return data
}

func TestFFmpegReadsStreamInfo(t *testing.T) {
	_, asset := newSource(t)
	assert.InDelta(t, 2.0, asset.Duration, 0.1)
	assert.InDelta(t, 10.0, asset.FrameRate, 1e-6)
	assert.Equal(t, 32, asset.Width)
	assert.Equal(t, "h264", asset.VideoCodec)
	assert.True(t, asset.HasAudio)
	assert.Positive(t, asset.SampleRate)
}

func TestFFmpegExtractFrameAtPicksFrameAtOrBefore(t *testing.T) {
	processor, asset := newSource(t)

	between := frameAt(t, processor, asset, 0.37)
	assert.Equal(t, frameAt(t, processor, asset, 0.30), between)
	assert.NotEqual(t, frameAt(t, processor, asset, 0.40), between)
	assert.NotEqual(t, frameAt(t, processor, asset, 0.20), between)

	dir := filepath.Join(t.TempDir(), "frames")
	paths, err := processor.ExtractFrames(context.Background(), asset, 3, 2, dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	third, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, between, third)
}

func TestFFmpegKeyframes(t *testing.T) {
	processor, asset := newSource(t)
	keyframes, err := processor.Keyframes(context.Background(), asset)
	require.NoError(t, err)
	require.Len(t, keyframes, 4)
	for i, want := range []float64{0, 0.5, 1.0, 1.5} {
		assert.InDelta(t, want, keyframes[i], 0.01)
	}
}

func TestFFmpegFramesToClip(t *testing.T) {
	processor, asset := newSource(t)
	ctx := context.Background()
	frames, err := processor.ExtractFrames(ctx, asset, 0, 5, filepath.Join(t.TempDir(), "frames"))
	require.NoError(t, err)

	output := filepath.Join(t.TempDir(), "clip.mp4")
	spec := media.ClipSpec{Frames: frames, FrameRate: asset.FrameRate, Source: asset, Output: output}
	require.NoError(t, processor.FramesToClip(ctx, spec))

	clip, err := processor.Probe(ctx, output)
	require.NoError(t, err)
	assert.InDelta(t, spec.Duration(), clip.Duration, 0.05)
	assert.Equal(t, asset.VideoCodec, clip.VideoCodec)
	assert.Equal(t, asset.PixelFormat, clip.PixelFormat)
	assert.True(t, clip.HasAudio)
	assert.Equal(t, asset.AudioCodec, clip.AudioCodec)
	assert.Equal(t, asset.SampleRate, clip.SampleRate)
}

func TestFFmpegCopyRangeKeepsStreams(t *testing.T) {
	processor, asset := newSource(t)
	ctx := context.Background()

	whole := filepath.Join(t.TempDir(), "whole.mp4")
	require.NoError(t, processor.CopyRange(ctx, asset, 0, asset.Duration, whole, false))
	copied, err := processor.Probe(ctx, whole)
	require.NoError(t, err)
	assert.InDelta(t, asset.Duration, copied.Duration, 0.05)
	for _, ts := range []float64{0, 0.73, 1.5} {
		assert.Equal(t, frameAt(t, processor, asset, ts), frameAt(t, processor, copied, ts), "frame at %.2f", ts)
	}

	// Two stream-copied halves cut on a keyframe join back to the source.
	dir := t.TempDir()
	first, second := filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")
	require.NoError(t, processor.CopyRange(ctx, asset, 0, 1, first, false))
	require.NoError(t, processor.CopyRange(ctx, asset, 1, asset.Duration, second, false))
	joined := filepath.Join(dir, "joined.mp4")
	require.NoError(t, processor.Concat(ctx, []string{first, second}, joined))
	rejoined, err := processor.Probe(ctx, joined)
	require.NoError(t, err)
	assert.InDelta(t, asset.Duration, rejoined.Duration, 0.1)
	assert.Equal(t, frameAt(t, processor, asset, 0.73), frameAt(t, processor, rejoined, 0.73))
}

func TestFFmpegUneditedRoundTrip(t *testing.T) {
	processor, asset := newSource(t)
	ctx := context.Background()
	segments, err := editing.Plan(asset.Duration, nil)
	require.NoError(t, err)
	require.Len(t, segments, 1)

	clips := []*model.EditedClip{{
		Segment:        segments[0],
		SourceStart:    0,
		SourceEnd:      asset.Duration,
		OutputDuration: asset.Duration,
		Remux:          true,
	}}
	output := filepath.Join(t.TempDir(), "out.mp4")
	_, err = editing.NewReconstructor(processor).Reconstruct(ctx, asset, clips, t.TempDir(), output)
	require.NoError(t, err)

	out, err := processor.Probe(ctx, output)
	require.NoError(t, err)
	assert.InDelta(t, asset.Duration, out.Duration, 0.05)
	for _, ts := range []float64{0.1, 0.99, 1.9} {
		assert.Equal(t, frameAt(t, processor, asset, ts), frameAt(t, processor, out, ts), "frame at %.2f", ts)
	}
}
