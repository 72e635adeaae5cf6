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
	"sort"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FramesToClip encodes the frames listed in spec through an ffconcat image
// list. Audio comes from the source range, silence when muted, and is padded
// or cut to the video length. Sources without audio give silent clips.
func (f *FFmpeg) FramesToClip(ctx context.Context, spec ClipSpec) error {
	if len(spec.Frames) == 0 {
		return fmt.Errorf("no frames to encode for %s", spec.Output)
	}
	if spec.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive for %s", spec.Output)
	}
	listPath := spec.Output + ".ffconcat"
	if err := os.WriteFile(listPath, []byte(FrameList(spec)), 0o644); err != nil {
		return fmt.Errorf("write frame list: %w", err)
	}
	defer os.Remove(listPath)

	duration := spec.Duration()
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath}
	withAudio := spec.Source != nil && spec.Source.HasAudio
	if withAudio {
		if spec.Mute {
			args = append(args, "-f", "lavfi", "-i",
				fmt.Sprintf("anullsrc=r=%d:cl=stereo", AudioSampleRate))
		} else {
			args = append(args, "-ss", formatSeconds(spec.AudioStart), "-i", spec.Source.Path)
		}
		args = append(args, "-map", "0:v:0", "-map", "1:a:0", "-af", "apad")
	}
	args = append(args, kwArgsList(f.encodeArgs(spec.Source, spec.FrameRate, withAudio))...)
	args = append(args, "-t", formatSeconds(duration), spec.Output)

	if err := f.runArgs(ctx, args); err != nil {
		return fmt.Errorf("encode clip %s: %w", spec.Output, err)
	}
	return nil
}

// FrameList renders the ffconcat script for spec. The last entry is repeated
// so that its duration is honoured.
func FrameList(spec ClipSpec) string {
	var sb strings.Builder
	sb.WriteString("ffconcat version 1.0\n")
	per := 1 / spec.FrameRate
	if spec.HoldSeconds > 0 {
		per = spec.HoldSeconds
	}
	for _, frame := range spec.Frames {
		fmt.Fprintf(&sb, "file %s\nduration %s\n", quoteConcatPath(frame), formatSeconds(per))
	}
	fmt.Fprintf(&sb, "file %s\n", quoteConcatPath(spec.Frames[len(spec.Frames)-1]))
	return sb.String()
}

// CopyRange writes [start, end) of the source. A range covering the whole
// file is remuxed without seeking. With stream copy the range should start
// on a keyframe; see Keyframes.
func (f *FFmpeg) CopyRange(ctx context.Context, asset *model.VideoAsset, start float64, end float64, output string, reencode bool) error {
	if end <= start {
		return fmt.Errorf("empty range [%.3f, %.3f)", start, end)
	}
	whole := start <= model.TimeEpsilon && end >= asset.Duration-model.TimeEpsilon

	inArgs := ffmpeg.KwArgs{}
	outArgs := ffmpeg.KwArgs{"avoid_negative_ts": "make_zero"}
	if !whole {
		inArgs["ss"] = formatSeconds(start)
		outArgs["t"] = formatSeconds(end - start)
	}
	if reencode {
		for k, v := range f.encodeArgs(asset, asset.FrameRate, asset.HasAudio) {
			outArgs[k] = v
		}
	} else {
		outArgs["c"] = "copy"
	}

	stream := ffmpeg.Input(asset.Path, inArgs).Output(output, outArgs).OverWriteOutput()
	if err := f.runStream(ctx, stream); err != nil {
		return fmt.Errorf("copy range [%.3f, %.3f): %w", start, end, err)
	}
	return nil
}

// Concat joins clips with the concat demuxer and stream copy. When the
// clips cannot be joined without decoding, the join is encoded instead.
func (f *FFmpeg) Concat(ctx context.Context, clips []string, output string) error {
	if len(clips) == 0 {
		return fmt.Errorf("nothing to concatenate")
	}
	listPath := output + ".txt"
	if err := os.WriteFile(listPath, []byte(ConcatList(clips)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	in := ffmpeg.KwArgs{"f": "concat", "safe": 0}
	stream := ffmpeg.Input(listPath, in).
		Output(output, ffmpeg.KwArgs{"c": "copy", "movflags": "+faststart"}).
		OverWriteOutput()
	err := f.runStream(ctx, stream)
	if err == nil || ctx.Err() != nil {
		return err
	}
	f.logger.WarnContext(ctx, "stream copy concat failed, encoding", "clips", len(clips), "error", err)

	outArgs := f.encodeArgs(nil, 0, true)
	outArgs["movflags"] = "+faststart"
	stream = ffmpeg.Input(listPath, in).Output(output, outArgs).OverWriteOutput()
	if err := f.runStream(ctx, stream); err != nil {
		return fmt.Errorf("concat %d clips: %w", len(clips), err)
	}
	return nil
}

// ConcatList renders a concat demuxer script, one clip per line in order.
func ConcatList(clips []string) string {
	var sb strings.Builder
	for _, clip := range clips {
		fmt.Fprintf(&sb, "file %s\n", quoteConcatPath(clip))
	}
	return sb.String()
}

func quoteConcatPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

func kwArgsList(kw ffmpeg.KwArgs) []string {
	keys := make([]string, 0, len(kw))
	for k := range kw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(kw)*2)
	for _, k := range keys {
		var v string
		switch val := kw[k].(type) {
		case string:
			v = val
		case int:
			v = strconv.Itoa(val)
		default:
			v = fmt.Sprint(val)
		}
		out = append(out, "-"+k, v)
	}
	return out
}
