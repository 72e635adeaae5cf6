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

package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// seekTime is a quarter frame before frame i. An accurate input seek keeps
// frames whose timestamp is at or after the seek point, so this lands on
// frame i even when its timestamp does not print exactly.
func seekTime(asset *model.VideoAsset, i int) float64 {
	t := (float64(i) - 0.25) / asset.FrameRate
	if t < 0 {
		return 0
	}
	return t
}

// ExtractFrameAt writes the frame at or before t.
func (f *FFmpeg) ExtractFrameAt(ctx context.Context, asset *model.VideoAsset, t float64, output string) error {
	if asset.FrameRate <= 0 {
		return fmt.Errorf("unknown frame rate for %s", asset.Path)
	}
	i := asset.FrameIndexAt(t)
	if last := asset.FrameCount() - 1; i > last {
		i = last
	}
	stream := ffmpeg.Input(asset.Path, ffmpeg.KwArgs{"ss": formatSeconds(seekTime(asset, i))}).
		Output(output, ffmpeg.KwArgs{"frames:v": 1, "f": "image2"}).
		OverWriteOutput()
	if err := f.runStream(ctx, stream); err != nil {
		return fmt.Errorf("extract frame at %.3fs: %w", t, err)
	}
	if _, err := os.Stat(output); err != nil {
		return fmt.Errorf("extract frame at %.3fs produced no image: %w", t, err)
	}
	return nil
}

// ExtractFrames writes count frames starting at index first.
func (f *FFmpeg) ExtractFrames(ctx context.Context, asset *model.VideoAsset, first int, count int, dir string) ([]string, error) {
	if asset.FrameRate <= 0 {
		return nil, fmt.Errorf("unknown frame rate for %s", asset.Path)
	}
	if count <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", count)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	pattern := filepath.Join(dir, "raw-%06d.png")
	stream := ffmpeg.Input(asset.Path, ffmpeg.KwArgs{"ss": formatSeconds(seekTime(asset, first))}).
		Output(pattern, ffmpeg.KwArgs{"frames:v": count, "vsync": "passthrough", "f": "image2"}).
		OverWriteOutput()
	if err := f.runStream(ctx, stream); err != nil {
		return nil, fmt.Errorf("extract frames %d..%d: %w", first, first+count-1, err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "raw-*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
