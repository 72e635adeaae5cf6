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

// Package model defines the core data structures for the video editor.
// This file contains the transient structures produced by the AI analysis.
// They live only for the duration of a workflow: the planner turns them into
// EditSegments and they are never persisted as-is.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultPointWindowSeconds is the length given to a window the model
// reported as a bare timestamp.
const DefaultPointWindowSeconds = 1.0

// RawWindow is one time range proposed by the model. Times are seconds from
// the start of the source. Unknown types are kept verbatim.
type RawWindow struct {
	StartSeconds       float64 `json:"start"`
	EndSeconds         float64 `json:"end"`
	Type               string  `json:"type"`
	Suggestion         string  `json:"suggestion,omitempty"`
	Text               string  `json:"text,omitempty"`
	Position           string  `json:"position,omitempty"`
	Effect             string  `json:"effect,omitempty"`
	Intensity          float64 `json:"intensity,omitempty"`
	Factor             float64 `json:"factor,omitempty"`
	Transition         string  `json:"transition,omitempty"`
	TransitionDuration float64 `json:"duration,omitempty"`
	Audio              string  `json:"audio,omitempty"`
	Still              bool    `json:"still,omitempty"`
}

// UnmarshalJSON accepts either an object or a bare number. A number is read
// as the start of a DefaultPointWindowSeconds long effect window whose effect
// comes from the analysis recommendations.
func (w *RawWindow) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var start float64
		if err := json.Unmarshal(trimmed, &start); err != nil {
			return fmt.Errorf("window must be an object or a number: %w", err)
		}
		*w = RawWindow{StartSeconds: start, EndSeconds: start + DefaultPointWindowSeconds, Type: string(KindEffectEnhancement)}
		return nil
	}
	type plain RawWindow
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*w = RawWindow(p)
	return nil
}

// TextOverlaySuggestion is a point-in-time overlay proposal.
type TextOverlaySuggestion struct {
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
	Position  string  `json:"position,omitempty"`
}

// EffectRecommendation is a point-in-time effect proposal.
type EffectRecommendation struct {
	Timestamp float64 `json:"timestamp"`
	Effect    string  `json:"effect"`
	Intensity float64 `json:"intensity,omitempty"`
	Factor    float64 `json:"factor,omitempty"`
}

// AnalysisResult is the structured reply of the analysis model.
type AnalysisResult struct {
	Windows                []RawWindow             `json:"frames_to_edit"`
	EnhancementTypes       []string                `json:"enhancement_types,omitempty"`
	TextOverlaySuggestions []TextOverlaySuggestion `json:"text_overlay_suggestions,omitempty"`
	EffectRecommendations  []EffectRecommendation  `json:"effect_recommendations,omitempty"`
	PriorityScores         []float64               `json:"priority_scores,omitempty"`
	Raw                    string                  `json:"-"`
}
