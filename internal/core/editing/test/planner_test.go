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

package editing_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type span struct {
	start, end float64
	kind       model.EditKind
}

func spans(segments []*model.EditSegment) []span {
	out := make([]span, len(segments))
	for i, s := range segments {
		out[i] = span{s.Start, s.End, s.Kind}
	}
	return out
}

func TestPlanSeparateWindows(t *testing.T) {
	segments, err := editing.Plan(12, []model.RawWindow{
		{StartSeconds: 0, EndSeconds: 2, Type: "text_overlay", Text: "Intro"},
		{StartSeconds: 5.5, EndSeconds: 7, Type: "effect_enhancement", Effect: "brightness"},
		{StartSeconds: 10, EndSeconds: 12, Type: "scene_transition"},
	})
	require.NoError(t, err)
	assert.Equal(t, []span{
		{0, 2, model.KindTextOverlay},
		{2, 5.5, model.KindUnedited},
		{5.5, 7, model.KindEffectEnhancement},
		{7, 10, model.KindUnedited},
		{10, 12, model.KindSceneTransition},
	}, spans(segments))
	assert.NoError(t, editing.ValidatePartition(12, segments))

	overlay, ok := segments[0].Payload.(model.TextOverlay)
	require.True(t, ok)
	assert.Equal(t, "Intro", overlay.Text)
	assert.Equal(t, model.PositionCenter, overlay.Position)
}

func TestPlanNarrowestWindowWins(t *testing.T) {
	segments, err := editing.Plan(6, []model.RawWindow{
		{StartSeconds: 1, EndSeconds: 5, Type: "effect_enhancement", Effect: "contrast"},
		{StartSeconds: 2, EndSeconds: 3, Type: "text_overlay", Text: "Look"},
	})
	require.NoError(t, err)
	assert.Equal(t, []span{
		{0, 1, model.KindUnedited},
		{1, 2, model.KindEffectEnhancement},
		{2, 3, model.KindTextOverlay},
		{3, 5, model.KindEffectEnhancement},
		{5, 6, model.KindUnedited},
	}, spans(segments))
	assert.Equal(t, 0, segments[1].Window)
	assert.Equal(t, 1, segments[2].Window)
	assert.Equal(t, 0, segments[3].Window)
}

func TestPlanSplitTransitionIsSynthesisedOnce(t *testing.T) {
	segments, err := editing.Plan(10, []model.RawWindow{
		{StartSeconds: 2, EndSeconds: 8, Type: "scene_transition", TransitionDuration: 1},
		{StartSeconds: 4, EndSeconds: 5, Type: "text_overlay", Text: "Mid"},
	})
	require.NoError(t, err)
	assert.Equal(t, []span{
		{0, 4, model.KindUnedited},
		{4, 5, model.KindTextOverlay},
		{5, 8, model.KindSceneTransition},
		{8, 10, model.KindUnedited},
	}, spans(segments))
	assert.NoError(t, editing.ValidatePartition(10, segments))

	transition, ok := segments[2].Payload.(model.SceneTransition)
	require.True(t, ok)
	assert.Equal(t, 1.0, transition.Duration)
	assert.Equal(t, -1, segments[0].Window)
}

func TestPlanTieGoesToFirstDeclared(t *testing.T) {
	segments, err := editing.Plan(4, []model.RawWindow{
		{StartSeconds: 1, EndSeconds: 3, Type: "effect_enhancement", Effect: "blur"},
		{StartSeconds: 1, EndSeconds: 3, Type: "text_overlay", Text: "ignored"},
	})
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, model.KindEffectEnhancement, segments[1].Kind)
}

func TestPlanClampsWindows(t *testing.T) {
	segments, err := editing.Plan(10, []model.RawWindow{
		{StartSeconds: -3, EndSeconds: 2, Type: "text_overlay", Text: "a"},
		{StartSeconds: 8, EndSeconds: 15, Type: "effect_enhancement"},
		{StartSeconds: 12, EndSeconds: 14, Type: "text_overlay", Text: "gone"},
		{StartSeconds: 4, EndSeconds: 4, Type: "text_overlay", Text: "empty"},
		{StartSeconds: 6, EndSeconds: 5, Type: "text_overlay", Text: "reversed"},
	})
	require.NoError(t, err)
	assert.Equal(t, []span{
		{0, 2, model.KindTextOverlay},
		{2, 8, model.KindUnedited},
		{8, 10, model.KindEffectEnhancement},
	}, spans(segments))

	effect := segments[2].Payload.(model.EffectEnhancement)
	assert.Equal(t, "highlight", effect.Effect)
}

func TestPlanWithoutWindows(t *testing.T) {
	segments, err := editing.Plan(3.5, nil)
	require.NoError(t, err)
	assert.Equal(t, []span{{0, 3.5, model.KindUnedited}}, spans(segments))
}

func TestPlanRejectsBadDurations(t *testing.T) {
	for _, d := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := editing.Plan(d, nil)
		assert.ErrorIs(t, err, editing.ErrInvalidDuration, "duration %v", d)
	}
	_, err := editing.Plan(0, []model.RawWindow{{StartSeconds: 0, EndSeconds: 1, Type: "text_overlay"}})
	assert.ErrorIs(t, err, editing.ErrEmptyPlan)
	assert.Equal(t, "EmptyPlan", editing.KindOf(err))
}

func TestPlanUsesSuggestionArrays(t *testing.T) {
	analysis := &model.AnalysisResult{
		Windows: []model.RawWindow{
			{StartSeconds: 1, EndSeconds: 3, Type: "text_overlay", Suggestion: "fallback"},
			{StartSeconds: 4, EndSeconds: 6, Type: "effect_enhancement", Audio: "MUTE"},
			{StartSeconds: 7, EndSeconds: 8, Type: "slow_motion"},
		},
		TextOverlaySuggestions: []model.TextOverlaySuggestion{
			{Timestamp: 2, Text: "Welcome", Position: "bottom"},
		},
		EffectRecommendations: []model.EffectRecommendation{
			{Timestamp: 5, Effect: "zoom", Factor: 1.4},
		},
	}
	segments, err := editing.PlanAnalysis(10, analysis)
	require.NoError(t, err)
	require.Len(t, segments, 7)

	overlay := segments[1].Payload.(model.TextOverlay)
	assert.Equal(t, "Welcome", overlay.Text)
	assert.Equal(t, "bottom", overlay.Position)

	effect := segments[3].Payload.(model.EffectEnhancement)
	assert.Equal(t, "zoom", effect.Effect)
	assert.Equal(t, 1.4, effect.Factor)
	assert.Equal(t, model.AudioMute, segments[3].Audio)

	assert.Equal(t, model.EditKind("slow_motion"), segments[5].Kind)
	assert.Equal(t, model.UnknownEdit{Name: "slow_motion"}, segments[5].Payload)
}

func TestPlanPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := []string{"text_overlay", "effect_enhancement", "scene_transition", "unedited", "bogus"}
	for run := 0; run < 500; run++ {
		duration := 0.1 + rng.Float64()*120
		windows := make([]model.RawWindow, rng.Intn(12))
		for i := range windows {
			a := rng.Float64()*duration*1.4 - duration*0.2
			b := a + rng.Float64()*duration*0.5
			windows[i] = model.RawWindow{StartSeconds: a, EndSeconds: b, Type: types[rng.Intn(len(types))]}
		}
		segments, err := editing.Plan(duration, windows)
		require.NoError(t, err)
		require.NoError(t, editing.ValidatePartition(duration, segments), "run %d", run)
		assert.Equal(t, 0.0, segments[0].Start)
		assert.Equal(t, duration, segments[len(segments)-1].End)
		for i := 1; i < len(segments); i++ {
			assert.Equal(t, segments[i-1].End, segments[i].Start)
			// Adjacent pieces of one window are merged.
			assert.False(t, segments[i-1].Window == segments[i].Window, "run %d: segments %d and %d share window", run, i-1, i)
		}
		transitions := make(map[int]int)
		for _, seg := range segments {
			if seg.Kind == model.KindSceneTransition {
				transitions[seg.Window]++
				assert.Equal(t, 1, transitions[seg.Window], "run %d: window %d synthesised twice", run, seg.Window)
			}
		}
	}
}

func TestErrorCarriesSegmentAndTimestamp(t *testing.T) {
	err := editing.SegmentError(editing.ErrExtraction, 3, 12.5, errors.New("decoder failed"))
	assert.ErrorIs(t, err, editing.ErrExtraction)
	assert.NotErrorIs(t, err, editing.ErrReconstruction)
	assert.Equal(t, "ExtractionError in segment 3 at 12.500s: decoder failed", err.Error())

	seg, ts, ok := editing.Details(err)
	assert.True(t, ok)
	assert.Equal(t, 3, seg)
	assert.Equal(t, 12.5, ts)
}
