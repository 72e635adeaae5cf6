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
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

type probeResult struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		PixFmt       string `json:"pix_fmt"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
		SampleRate   string `json:"sample_rate"`
		Channels     int    `json:"channels"`
	} `json:"streams"`
}

// Probe runs ffprobe and maps its JSON report onto a VideoAsset. ffprobe is
// started with exec.CommandContext rather than ffmpeg.ProbeWithTimeout so
// that a cancelled run stops the probe.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*model.VideoAsset, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return ParseProbe(path, output)
}

// ParseProbe converts ffprobe JSON into a VideoAsset. A file without a video
// stream is an error.
func ParseProbe(path string, data []byte) (*model.VideoAsset, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	asset := &model.VideoAsset{Path: path}
	videoDuration := ""
	foundVideo := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			asset.Width = stream.Width
			asset.Height = stream.Height
			asset.VideoCodec = stream.CodecName
			asset.PixelFormat = stream.PixFmt
			asset.FrameRate = ParseFrameRate(stream.AvgFrameRate)
			if asset.FrameRate == 0 {
				asset.FrameRate = ParseFrameRate(stream.RFrameRate)
			}
			videoDuration = stream.Duration
		case "audio":
			if !asset.HasAudio {
				asset.HasAudio = true
				asset.AudioCodec = stream.CodecName
				asset.SampleRate, _ = strconv.Atoi(stream.SampleRate)
				asset.Channels = stream.Channels
			}
		}
	}
	if !foundVideo {
		return nil, fmt.Errorf("no video stream found in %s", path)
	}

	if d, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64); err == nil {
		asset.Duration = d
	} else if d, err := strconv.ParseFloat(strings.TrimSpace(videoDuration), 64); err == nil {
		asset.Duration = d
	}
	return asset, nil
}

// ParseFrameRate parses ffprobe rates such as "30/1" or "30000/1001".
// Unknown or zero rates yield 0.
func ParseFrameRate(rate string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(rate), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Keyframes lists the presentation times of the video keyframes in
// ascending order. Only packet headers are read, nothing is decoded.
func (f *FFmpeg) Keyframes(ctx context.Context, asset *model.VideoAsset) ([]float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "packet=pts_time,flags",
		"-of", "csv=p=0",
		asset.Path,
	)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("list keyframes of %s: %w", asset.Path, err)
	}
	return ParseKeyframes(output), nil
}

// ParseKeyframes reads "pts_time,flags" lines and keeps the packets flagged
// K. Lines without a timestamp are skipped.
func ParseKeyframes(data []byte) []float64 {
	var out []float64
	for _, line := range strings.Split(string(data), "\n") {
		ts, flags, ok := strings.Cut(strings.TrimSpace(line), ",")
		if !ok || !strings.Contains(flags, "K") {
			continue
		}
		t, err := strconv.ParseFloat(ts, 64)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}
