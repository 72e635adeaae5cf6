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
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
	"github.com/jaycherian/gcp-go-video-editor/internal/render"
)

// DefaultFontScale magnifies the 13 pixel bitmap face to roughly the 48
// point captions of a 1080p frame.
const DefaultFontScale = 3

// MaxTransitionSeconds bounds the length of a synthesised transition.
const MaxTransitionSeconds = 10.0

// ClipExtension is the container of intermediate clips.
const ClipExtension = ".mp4"

// Applier renders the edit of one segment into a clip.
type Applier struct {
	media     media.Processor
	fontScale int
}

// NewApplier creates an Applier. A fontScale below 1 selects DefaultFontScale.
func NewApplier(processor media.Processor, fontScale int) *Applier {
	if fontScale < 1 {
		fontScale = DefaultFontScale
	}
	return &Applier{media: processor, fontScale: fontScale}
}

// FrameFunc edits one decoded frame. It must not modify its argument.
type FrameFunc func(*image.RGBA) (*image.RGBA, error)

// Apply edits the frames of set and encodes them. Unedited segments are
// returned as a remux reference without touching any pixels. Kinds, effects
// and transition styles without an implementation are UnsupportedEditKind.
func (a *Applier) Apply(ctx context.Context, asset *model.VideoAsset, set *model.FrameSet, workDir string) (*model.EditedClip, error) {
	seg := set.Segment
	clip := &model.EditedClip{
		Segment:     seg,
		SourceStart: seg.Start,
		SourceEnd:   seg.End,
	}

	switch p := seg.Payload.(type) {
	case model.Unedited:
		clip.Remux = true
		clip.OutputDuration = seg.Span()
		return clip, nil
	case model.SceneTransition:
		return a.applyTransition(ctx, asset, set, p, clip, workDir)
	case model.TextOverlay, model.EffectEnhancement:
		fn, err := a.FrameEditor(seg)
		if err != nil {
			return nil, err
		}
		return a.applyFrames(ctx, asset, set, fn, clip, workDir)
	case model.UnknownEdit:
		return nil, SegmentError(ErrUnsupportedEditKind, seg.Index, seg.Start, fmt.Errorf("edit kind %q is not supported", p.Name))
	default:
		return nil, SegmentError(ErrUnsupportedEditKind, seg.Index, seg.Start, fmt.Errorf("edit kind %q is not supported", seg.Kind))
	}
}

// FrameEditor returns the per-frame function of an overlay or effect segment.
func (a *Applier) FrameEditor(seg *model.EditSegment) (FrameFunc, error) {
	switch p := seg.Payload.(type) {
	case model.TextOverlay:
		scale := p.FontScale
		if scale < 1 {
			scale = a.fontScale
		}
		style := render.TextStyle{
			Text:       p.Text,
			Position:   p.Position,
			Scale:      scale,
			Color:      render.ParseColor(p.Color, render.DefaultTextColor),
			Background: render.ParseColor(p.Background, render.DefaultBackgroundColor),
			Border:     5,
		}
		return func(img *image.RGBA) (*image.RGBA, error) {
			return render.DrawText(img, style), nil
		}, nil
	case model.EffectEnhancement:
		if !render.KnownEffect(p.Effect) {
			return nil, SegmentError(ErrUnsupportedEditKind, seg.Index, seg.Start, fmt.Errorf("effect %q is not supported", p.Effect))
		}
		params := render.EffectParams{Intensity: p.Intensity, Factor: p.Factor}
		return func(img *image.RGBA) (*image.RGBA, error) {
			return render.ApplyEffect(img, p.Effect, params)
		}, nil
	}
	return nil, SegmentError(ErrUnsupportedEditKind, seg.Index, seg.Start, fmt.Errorf("edit kind %q has no frame editor", seg.Kind))
}

func (a *Applier) applyFrames(ctx context.Context, asset *model.VideoAsset, set *model.FrameSet, fn FrameFunc, clip *model.EditedClip, workDir string) (*model.EditedClip, error) {
	seg := set.Segment
	if set.Len() == 0 {
		return nil, SegmentError(ErrExtraction, seg.Index, seg.Start, fmt.Errorf("no frames to edit"))
	}
	editedDir := filepath.Join(SegmentDir(workDir, seg), "edited")
	if err := os.MkdirAll(editedDir, 0o755); err != nil {
		return nil, SegmentError(ErrReconstruction, seg.Index, seg.Start, err)
	}
	defer os.RemoveAll(editedDir)

	paths := make([]string, 0, set.Len())
	for _, frame := range set.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := loadFrame(frame)
		if err != nil {
			return nil, SegmentError(ErrExtraction, seg.Index, frame.Timestamp, err)
		}
		edited, err := fn(img)
		if err != nil {
			return nil, SegmentError(ErrUnsupportedEditKind, seg.Index, frame.Timestamp, err)
		}
		path := filepath.Join(editedDir, filepath.Base(frame.Path))
		if err := render.SavePNG(path, edited); err != nil {
			return nil, SegmentError(ErrReconstruction, seg.Index, frame.Timestamp, err)
		}
		paths = append(paths, path)
	}

	spec := media.ClipSpec{
		Frames:     paths,
		FrameRate:  asset.FrameRate,
		Source:     asset,
		AudioStart: seg.Start,
		Mute:       seg.Audio == model.AudioMute,
		Output:     filepath.Join(SegmentDir(workDir, seg), "clip"+ClipExtension),
	}
	if set.Static {
		spec.HoldSeconds = seg.Span()
	}
	return a.encode(ctx, spec, clip)
}

func (a *Applier) applyTransition(ctx context.Context, asset *model.VideoAsset, set *model.FrameSet, p model.SceneTransition, clip *model.EditedClip, workDir string) (*model.EditedClip, error) {
	seg := set.Segment
	if !render.KnownTransition(p.Style) {
		return nil, SegmentError(ErrUnsupportedEditKind, seg.Index, seg.Start, fmt.Errorf("transition %q is not supported", p.Style))
	}
	if set.Len() != 2 {
		return nil, SegmentError(ErrExtraction, seg.Index, seg.Start, fmt.Errorf("transition needs 2 boundary frames, got %d", set.Len()))
	}
	from, err := loadFrame(set.Frames[0])
	if err != nil {
		return nil, SegmentError(ErrExtraction, seg.Index, set.Frames[0].Timestamp, err)
	}
	to, err := loadFrame(set.Frames[1])
	if err != nil {
		return nil, SegmentError(ErrExtraction, seg.Index, set.Frames[1].Timestamp, err)
	}

	duration := p.Duration
	if duration <= 0 || math.IsNaN(duration) {
		duration = seg.Span()
	}
	duration = math.Min(duration, MaxTransitionSeconds)
	n := int(math.Round(duration * asset.FrameRate))
	if n < 1 {
		n = 1
	}
	frames, err := render.Transition(from, to, p.Style, n)
	if err != nil {
		return nil, SegmentError(ErrUnsupportedEditKind, seg.Index, seg.Start, err)
	}

	editedDir := filepath.Join(SegmentDir(workDir, seg), "edited")
	if err := os.MkdirAll(editedDir, 0o755); err != nil {
		return nil, SegmentError(ErrReconstruction, seg.Index, seg.Start, err)
	}
	defer os.RemoveAll(editedDir)

	paths := make([]string, 0, n)
	for i, img := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(editedDir, fmt.Sprintf("transition-%06d.png", i))
		if err := render.SavePNG(path, img); err != nil {
			return nil, SegmentError(ErrReconstruction, seg.Index, seg.Start, err)
		}
		paths = append(paths, path)
	}

	spec := media.ClipSpec{
		Frames:     paths,
		FrameRate:  asset.FrameRate,
		Source:     asset,
		AudioStart: seg.Start,
		Mute:       seg.Audio == model.AudioMute,
		Output:     filepath.Join(SegmentDir(workDir, seg), "clip"+ClipExtension),
	}
	return a.encode(ctx, spec, clip)
}

func (a *Applier) encode(ctx context.Context, spec media.ClipSpec, clip *model.EditedClip) (*model.EditedClip, error) {
	seg := clip.Segment
	if err := a.media.FramesToClip(ctx, spec); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, SegmentError(ErrReconstruction, seg.Index, seg.Start, fmt.Errorf("encode edited clip: %w", err))
	}
	clip.Path = spec.Output
	clip.OutputDuration = spec.Duration()
	clip.FrameCount = len(spec.Frames)
	return clip, nil
}

func loadFrame(frame *model.Frame) (*image.RGBA, error) {
	if frame.Image != nil {
		return frame.Image, nil
	}
	return render.LoadPNG(frame.Path)
}
