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
	"image/png"
	"os"
	"path/filepath"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
)

// Extractor pulls the frames each edit needs out of the source.
type Extractor struct {
	media     media.Processor
	maxFrames int
}

// NewExtractor creates an Extractor. maxFrames bounds the frames of one
// segment; zero means unbounded.
func NewExtractor(processor media.Processor, maxFrames int) *Extractor {
	return &Extractor{media: processor, maxFrames: maxFrames}
}

// SegmentDir is the scratch directory of a segment inside the run work dir.
func SegmentDir(workDir string, seg *model.EditSegment) string {
	return filepath.Join(workDir, fmt.Sprintf("seg-%04d", seg.Index))
}

// FrameFileName names a frame by its source timestamp. The fixed width keeps
// lexical and temporal order the same.
func FrameFileName(timestamp float64) string {
	return fmt.Sprintf("frame-%013.6f.png", timestamp)
}

// Extract returns the frames the segment's edit needs: both boundary frames
// for a transition, one frame for a still edit, every frame of the range for
// sustained edits and none for unedited segments. Any failure is an
// ExtractionError for the segment.
func (e *Extractor) Extract(ctx context.Context, asset *model.VideoAsset, seg *model.EditSegment, workDir string) (*model.FrameSet, error) {
	set := &model.FrameSet{Segment: seg}
	if seg.Kind == model.KindUnedited {
		return set, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if asset.FrameRate <= 0 {
		return nil, SegmentError(ErrExtraction, seg.Index, seg.Start, fmt.Errorf("source frame rate is unknown"))
	}

	set.Dir = filepath.Join(SegmentDir(workDir, seg), "frames")
	if err := os.MkdirAll(set.Dir, 0o755); err != nil {
		return nil, SegmentError(ErrExtraction, seg.Index, seg.Start, err)
	}

	var err error
	switch {
	case seg.Kind == model.KindSceneTransition:
		err = e.extractAt(ctx, asset, set, seg.Start, seg.End)
	case seg.Static():
		set.Static = true
		err = e.extractAt(ctx, asset, set, seg.Start)
	default:
		err = e.extractRange(ctx, asset, set)
	}
	if err != nil {
		set.Release()
		return nil, err
	}
	return set, nil
}

func (e *Extractor) extractAt(ctx context.Context, asset *model.VideoAsset, set *model.FrameSet, times ...float64) error {
	seg := set.Segment
	for _, t := range times {
		if t < 0 || t > asset.Duration+model.TimeEpsilon {
			return SegmentError(ErrExtraction, seg.Index, t, fmt.Errorf("timestamp outside video of %.3fs", asset.Duration))
		}
		index := asset.FrameIndexAt(t)
		if last := asset.FrameCount() - 1; index > last {
			index = last
		}
		path := filepath.Join(set.Dir, FrameFileName(t))
		if err := e.media.ExtractFrameAt(ctx, asset, t, path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return SegmentError(ErrExtraction, seg.Index, t, err)
		}
		if err := checkFrame(path, asset); err != nil {
			return SegmentError(ErrExtraction, seg.Index, t, err)
		}
		set.Frames = append(set.Frames, &model.Frame{Index: index, Timestamp: t, Path: path})
	}
	return nil
}

func (e *Extractor) extractRange(ctx context.Context, asset *model.VideoAsset, set *model.FrameSet) error {
	seg := set.Segment
	if seg.End > asset.Duration+model.TimeEpsilon {
		return SegmentError(ErrExtraction, seg.Index, seg.End, fmt.Errorf("segment ends after video of %.3fs", asset.Duration))
	}
	total := asset.FrameCount()
	first := asset.FrameIndexAt(seg.Start)
	end := asset.FrameIndexAt(seg.End)
	if end > total {
		end = total
	}
	if first >= total {
		first = total - 1
	}
	count := end - first
	if count < 1 {
		// Shorter than one frame: the frame on screen at Start stands for it.
		count = 1
	}
	if e.maxFrames > 0 && count > e.maxFrames {
		return SegmentError(ErrExtraction, seg.Index, seg.Start, fmt.Errorf("segment needs %d frames, limit is %d", count, e.maxFrames))
	}

	paths, err := e.media.ExtractFrames(ctx, asset, first, count, set.Dir)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return SegmentError(ErrExtraction, seg.Index, seg.Start, err)
	}
	// Frame counts derived from container duration can overshoot by one at
	// the very end of a stream.
	touchesEnd := first+count >= total
	if len(paths) < count && !(touchesEnd && len(paths) > 0 && count-len(paths) <= 1) {
		return SegmentError(ErrExtraction, seg.Index, asset.FrameTime(first+len(paths)),
			fmt.Errorf("decoded %d of %d frames", len(paths), count))
	}
	if len(paths) > count {
		for _, extra := range paths[count:] {
			_ = os.Remove(extra)
		}
		paths = paths[:count]
	}

	for i, raw := range paths {
		index := first + i
		ts := asset.FrameTime(index)
		path := filepath.Join(set.Dir, FrameFileName(ts))
		if err := os.Rename(raw, path); err != nil {
			return SegmentError(ErrExtraction, seg.Index, ts, err)
		}
		if err := checkFrame(path, asset); err != nil {
			return SegmentError(ErrExtraction, seg.Index, ts, err)
		}
		set.Frames = append(set.Frames, &model.Frame{Index: index, Timestamp: ts, Path: path})
	}
	return nil
}

// checkFrame reads the PNG header and verifies the frame geometry.
func checkFrame(path string, asset *model.VideoAsset) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("frame %s is not decodable: %w", filepath.Base(path), err)
	}
	if asset.Width > 0 && asset.Height > 0 && (cfg.Width != asset.Width || cfg.Height != asset.Height) {
		return fmt.Errorf("frame is %dx%d, video is %dx%d", cfg.Width, cfg.Height, asset.Width, asset.Height)
	}
	return nil
}
