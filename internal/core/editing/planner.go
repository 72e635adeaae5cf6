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

// Package editing turns an AI analysis into an edited video: it plans
// segments, extracts their frames, applies the edits and stitches the
// result back together in source order.
package editing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

type candidate struct {
	window int
	start  float64
	end    float64
}

func (c candidate) width() float64 {
	return c.end - c.start
}

// Plan partitions [0, duration] into contiguous segments from the raw
// windows. Windows are clamped to the video and zero-width windows dropped.
// Where windows overlap the narrowest wins, ties going to the window declared
// first. Uncovered time becomes unedited segments.
func Plan(duration float64, windows []model.RawWindow) ([]*model.EditSegment, error) {
	return PlanAnalysis(duration, &model.AnalysisResult{Windows: windows})
}

// PlanAnalysis is Plan with the suggestion arrays of the analysis used to
// fill payload fields the windows leave empty.
func PlanAnalysis(duration float64, analysis *model.AnalysisResult) ([]*model.EditSegment, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return nil, NewError(ErrInvalidDuration, fmt.Errorf("duration %v is not a finite non-negative number", duration))
	}
	if duration == 0 {
		return nil, NewError(ErrEmptyPlan, fmt.Errorf("video has zero duration"))
	}
	if analysis == nil {
		analysis = &model.AnalysisResult{}
	}

	candidates := clampWindows(duration, analysis.Windows)
	bounds := boundaries(duration, candidates)

	type piece struct {
		start, end float64
		window     int
	}
	var pieces []piece
	for k := 0; k+1 < len(bounds); k++ {
		lo, hi := bounds[k], bounds[k+1]
		winner := -1
		for ci, c := range candidates {
			if c.start > lo+model.TimeEpsilon || c.end < hi-model.TimeEpsilon {
				continue
			}
			if winner < 0 || narrower(c, candidates[winner]) {
				winner = ci
			}
		}
		w := -1
		if winner >= 0 {
			w = candidates[winner].window
		}
		if n := len(pieces); n > 0 && pieces[n-1].window == w {
			pieces[n-1].end = hi
			continue
		}
		pieces = append(pieces, piece{start: lo, end: hi, window: w})
	}

	// A transition split by a narrower window is synthesised once, on the
	// piece ending where the window ends; its other pieces stay unedited.
	last := make(map[int]int)
	for i, p := range pieces {
		if p.window >= 0 && isTransition(analysis.Windows[p.window]) {
			last[p.window] = i
		}
	}
	merged := pieces[:0]
	for i, p := range pieces {
		if j, ok := last[p.window]; ok && j != i {
			p.window = -1
		}
		if n := len(merged); n > 0 && merged[n-1].window == p.window {
			merged[n-1].end = p.end
			continue
		}
		merged = append(merged, p)
	}
	pieces = merged

	segments := make([]*model.EditSegment, 0, len(pieces))
	for i, p := range pieces {
		seg := &model.EditSegment{
			Index:   i,
			Start:   p.start,
			End:     p.end,
			Kind:    model.KindUnedited,
			Payload: model.Unedited{},
			Audio:   model.AudioKeep,
			Window:  p.window,
		}
		if p.window >= 0 {
			resolvePayload(seg, analysis, p.window)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func isTransition(w model.RawWindow) bool {
	return model.EditKind(strings.ToLower(strings.TrimSpace(w.Type))) == model.KindSceneTransition
}

// narrower orders candidates by width, then declaration order.
func narrower(a, b candidate) bool {
	wa, wb := a.width(), b.width()
	if math.Abs(wa-wb) > model.TimeEpsilon {
		return wa < wb
	}
	return a.window < b.window
}

func clampWindows(duration float64, windows []model.RawWindow) []candidate {
	out := make([]candidate, 0, len(windows))
	for i, w := range windows {
		s, e := w.StartSeconds, w.EndSeconds
		if math.IsNaN(s) || math.IsNaN(e) {
			continue
		}
		s = math.Max(0, math.Min(s, duration))
		e = math.Max(0, math.Min(e, duration))
		if e-s <= model.TimeEpsilon {
			continue
		}
		out = append(out, candidate{window: i, start: s, end: e})
	}
	return out
}

// boundaries returns 0, duration and every window edge, sorted, with values
// closer than TimeEpsilon merged.
func boundaries(duration float64, candidates []candidate) []float64 {
	all := []float64{0, duration}
	for _, c := range candidates {
		all = append(all, c.start, c.end)
	}
	sort.Float64s(all)
	out := all[:1]
	for _, v := range all[1:] {
		if v-out[len(out)-1] > model.TimeEpsilon {
			out = append(out, v)
		}
	}
	// The last boundary is exactly duration even if an edge merged into it.
	out[len(out)-1] = duration
	return out
}

// resolvePayload fills the kind specific payload of a segment from the
// window that produced it.
func resolvePayload(seg *model.EditSegment, analysis *model.AnalysisResult, window int) {
	w := analysis.Windows[window]
	seg.Suggestion = w.Suggestion
	if strings.EqualFold(strings.TrimSpace(w.Audio), string(model.AudioMute)) {
		seg.Audio = model.AudioMute
	}
	lo, hi := w.StartSeconds, w.EndSeconds

	kind := model.EditKind(strings.ToLower(strings.TrimSpace(w.Type)))
	seg.Kind = kind
	switch kind {
	case model.KindTextOverlay:
		p := model.TextOverlay{Text: w.Text, Position: w.Position, Still: w.Still}
		for _, s := range analysis.TextOverlaySuggestions {
			if p.Text != "" {
				break
			}
			if s.Timestamp >= lo && s.Timestamp < hi {
				p.Text = s.Text
				if p.Position == "" {
					p.Position = s.Position
				}
			}
		}
		if p.Text == "" {
			p.Text = w.Suggestion
		}
		if p.Position == "" {
			p.Position = model.PositionCenter
		}
		seg.Payload = p
	case model.KindEffectEnhancement:
		p := model.EffectEnhancement{Effect: w.Effect, Intensity: w.Intensity, Factor: w.Factor, Still: w.Still}
		if p.Effect == "" {
			for _, r := range analysis.EffectRecommendations {
				if r.Timestamp >= lo && r.Timestamp < hi {
					p.Effect = r.Effect
					if p.Intensity == 0 {
						p.Intensity = r.Intensity
					}
					if p.Factor == 0 {
						p.Factor = r.Factor
					}
					break
				}
			}
		}
		if p.Effect == "" {
			p.Effect = "highlight"
		}
		seg.Payload = p
	case model.KindSceneTransition:
		seg.Payload = model.SceneTransition{Style: w.Transition, Duration: w.TransitionDuration}
	case model.KindUnedited:
		seg.Payload = model.Unedited{}
	default:
		seg.Payload = model.UnknownEdit{Name: string(kind)}
	}
}

// ValidatePartition checks that segments are in index order and cover
// [0, duration] without gaps or overlaps.
func ValidatePartition(duration float64, segments []*model.EditSegment) error {
	if len(segments) == 0 {
		return fmt.Errorf("no segments")
	}
	cursor := 0.0
	for i, s := range segments {
		if s.Index != i {
			return fmt.Errorf("segment at position %d has index %d", i, s.Index)
		}
		if math.Abs(s.Start-cursor) > model.TimeEpsilon {
			return fmt.Errorf("segment %d starts at %.6f, expected %.6f", i, s.Start, cursor)
		}
		if s.End-s.Start <= 0 {
			return fmt.Errorf("segment %d is empty", i)
		}
		cursor = s.End
	}
	if math.Abs(cursor-duration) > model.TimeEpsilon {
		return fmt.Errorf("segments end at %.6f, expected %.6f", cursor, duration)
	}
	return nil
}
