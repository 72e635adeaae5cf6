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

package editing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
)

// Reconstructor stitches edited clips back into one video.
type Reconstructor struct {
	media media.Processor
}

func NewReconstructor(processor media.Processor) *Reconstructor {
	return &Reconstructor{media: processor}
}

// ValidateClips checks that the clips are in segment order and that their
// source ranges partition [0, duration].
func ValidateClips(asset *model.VideoAsset, clips []*model.EditedClip) error {
	if len(clips) == 0 {
		return NewError(ErrReconstruction, fmt.Errorf("no clips to assemble"))
	}
	cursor := 0.0
	for i, clip := range clips {
		if clip == nil || clip.Segment == nil {
			return SegmentError(ErrReconstruction, i, math.NaN(), fmt.Errorf("missing clip"))
		}
		if clip.Segment.Index != i {
			return SegmentError(ErrReconstruction, i, clip.SourceStart, fmt.Errorf("clip of segment %d found at position %d", clip.Segment.Index, i))
		}
		if math.Abs(clip.SourceStart-cursor) > model.TimeEpsilon {
			return SegmentError(ErrReconstruction, i, clip.SourceStart, fmt.Errorf("gap or overlap: expected start %.6f", cursor))
		}
		if clip.SourceEnd-clip.SourceStart <= 0 {
			return SegmentError(ErrReconstruction, i, clip.SourceStart, fmt.Errorf("empty source range"))
		}
		if !clip.Remux && clip.Path == "" {
			return SegmentError(ErrReconstruction, i, clip.SourceStart, fmt.Errorf("edited clip has no file"))
		}
		cursor = clip.SourceEnd
	}
	if math.Abs(cursor-asset.Duration) > model.TimeEpsilon {
		return NewError(ErrReconstruction, fmt.Errorf("clips cover %.6fs of a %.6fs video", cursor, asset.Duration))
	}
	return nil
}

// Reconstruct validates the clips and writes the assembled video to output.
// Assembly happens inside workDir; output is only created once the video is
// complete, and is left untouched on failure.
func (r *Reconstructor) Reconstruct(ctx context.Context, asset *model.VideoAsset, clips []*model.EditedClip, workDir string, output string) (*model.Timeline, error) {
	if err := ValidateClips(asset, clips); err != nil {
		return nil, err
	}
	timeline := BuildTimeline(clips)
	timeline.OutputPath = output

	staging := filepath.Join(workDir, "assembled"+filepath.Ext(output))
	defer os.Remove(staging)

	if len(clips) == 1 && clips[0].Remux {
		// Nothing was edited: remux the source as-is.
		if err := r.media.CopyRange(ctx, asset, 0, asset.Duration, staging, false); err != nil {
			return nil, r.fail(ctx, -1, err)
		}
	} else {
		var keyframes []float64
		loaded := false
		paths := make([]string, 0, len(clips))
		for _, clip := range clips {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !clip.Remux {
				paths = append(paths, clip.Path)
				continue
			}
			if !loaded && clip.SourceStart > model.TimeEpsilon {
				kf, err := r.media.Keyframes(ctx, asset)
				if err != nil {
					return nil, r.fail(ctx, clip.Segment.Index, err)
				}
				keyframes, loaded = kf, true
			}
			pieces, err := r.remux(ctx, asset, clip, keyframes, workDir)
			if err != nil {
				return nil, r.fail(ctx, clip.Segment.Index, err)
			}
			clip.Path = pieces[len(pieces)-1]
			paths = append(paths, pieces...)
		}
		if err := r.media.Concat(ctx, paths, staging); err != nil {
			return nil, r.fail(ctx, -1, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := media.MoveFile(staging, output); err != nil {
		return nil, NewError(ErrReconstruction, fmt.Errorf("move assembled video to %s: %w", output, err))
	}
	return timeline, nil
}

// remux writes an unedited range without decoding it. Stream copy is exact
// only from a keyframe, so a range starting between keyframes has its head
// encoded up to the next keyframe and the rest copied. A copy the container
// rejects is encoded instead. The returned pieces play in order.
func (r *Reconstructor) remux(ctx context.Context, asset *model.VideoAsset, clip *model.EditedClip, keyframes []float64, workDir string) ([]string, error) {
	dir := SegmentDir(workDir, clip.Segment)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	start, end := clip.SourceStart, clip.SourceEnd
	cut := start
	if start > model.TimeEpsilon {
		cut = NextKeyframe(keyframes, start, end)
	}

	var pieces []string
	if cut-start > model.TimeEpsilon {
		head := filepath.Join(dir, "head"+ClipExtension)
		if err := r.media.CopyRange(ctx, asset, start, cut, head, true); err != nil {
			return nil, err
		}
		pieces = append(pieces, head)
	}
	if end-cut > model.TimeEpsilon {
		body := filepath.Join(dir, "clip"+ClipExtension)
		if err := r.media.CopyRange(ctx, asset, cut, end, body, false); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.WarnContext(ctx, "stream copy failed, encoding range",
				"segment", clip.Segment.Index, "start", cut, "end", end, "error", err)
			if err := r.media.CopyRange(ctx, asset, cut, end, body, true); err != nil {
				return nil, err
			}
		}
		pieces = append(pieces, body)
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("range [%.6f, %.6f) is too short to copy", start, end)
	}
	return pieces, nil
}

// NextKeyframe returns the first keyframe at or after start, or end when no
// keyframe falls inside [start, end).
func NextKeyframe(keyframes []float64, start float64, end float64) float64 {
	i := sort.SearchFloat64s(keyframes, start-model.TimeEpsilon)
	if i < len(keyframes) && keyframes[i] < end-model.TimeEpsilon {
		return math.Max(keyframes[i], start)
	}
	return end
}

func (r *Reconstructor) fail(ctx context.Context, segment int, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if segment < 0 {
		return NewError(ErrReconstruction, err)
	}
	return SegmentError(ErrReconstruction, segment, math.NaN(), err)
}

// BuildTimeline lays the clips end to end on the output timeline.
func BuildTimeline(clips []*model.EditedClip) *model.Timeline {
	t := &model.Timeline{Entries: make([]model.TimelineEntry, 0, len(clips))}
	cursor := 0.0
	for _, clip := range clips {
		entry := model.TimelineEntry{
			SegmentIndex: clip.Segment.Index,
			Kind:         clip.Segment.Kind,
			SourceStart:  clip.SourceStart,
			SourceEnd:    clip.SourceEnd,
			OutputStart:  cursor,
			OutputEnd:    cursor + clip.OutputDuration,
		}
		cursor = entry.OutputEnd
		t.Entries = append(t.Entries, entry)
	}
	t.OutputDuration = cursor
	return t
}
