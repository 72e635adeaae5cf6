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

// Package model defines the data structures for the application. This file
// provides the few-shot example embedded in the analysis prompt. Showing the
// model a concrete reply keeps its JSON consistent and parsable.
package model

// GetExampleAnalysis returns the sample reply shown to the analysis model.
//
// Outputs:
//   - *AnalysisResult: A hardcoded analysis of a ten second clip.
func GetExampleAnalysis() *AnalysisResult {
	return &AnalysisResult{
		Windows: []RawWindow{
			{StartSeconds: 0.5, EndSeconds: 2.5, Type: string(KindTextOverlay), Text: "Key moment", Position: PositionCenter, Suggestion: "introduce the subject"},
			{StartSeconds: 4.0, EndSeconds: 5.0, Type: string(KindSceneTransition), Transition: "fade", TransitionDuration: 0.5, Suggestion: "smooth the cut between scenes"},
			{StartSeconds: 6.0, EndSeconds: 8.0, Type: string(KindEffectEnhancement), Effect: "zoom", Factor: 1.2, Suggestion: "draw attention to the speaker"},
		},
		EnhancementTypes: []string{string(KindTextOverlay), string(KindEffectEnhancement), string(KindSceneTransition)},
		TextOverlaySuggestions: []TextOverlaySuggestion{
			{Timestamp: 1.0, Text: "Key moment", Position: PositionCenter},
			{Timestamp: 6.0, Text: "Important scene", Position: PositionBottom},
		},
		EffectRecommendations: []EffectRecommendation{
			{Timestamp: 1.5, Effect: "highlight", Intensity: 0.7},
			{Timestamp: 6.5, Effect: "zoom", Factor: 1.2},
		},
		PriorityScores: []float64{8, 6, 9},
	}
}
