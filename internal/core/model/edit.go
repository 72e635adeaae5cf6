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

package model

import "fmt"

// EditKind names the transformation applied to a segment.
type EditKind string

const (
	KindTextOverlay       EditKind = "text_overlay"
	KindEffectEnhancement EditKind = "effect_enhancement"
	KindSceneTransition   EditKind = "scene_transition"
	KindUnedited          EditKind = "unedited"
)

// Known reports whether the kind is one the editor can apply.
func (k EditKind) Known() bool {
	switch k {
	case KindTextOverlay, KindEffectEnhancement, KindSceneTransition, KindUnedited:
		return true
	}
	return false
}

// AudioPolicy controls the audio of an edited segment.
type AudioPolicy string

const (
	AudioKeep AudioPolicy = "keep"
	AudioMute AudioPolicy = "mute"
)

// Text positions understood by the overlay renderer. Anything else is parsed
// as "x,y" in pixels.
const (
	PositionTop    = "top"
	PositionCenter = "center"
	PositionBottom = "bottom"
)

// Payload is the kind specific data of a segment. The set of implementations
// is closed; use a type switch.
type Payload interface {
	Kind() EditKind
	payload()
}

// TextOverlay draws Text on every frame of the segment.
type TextOverlay struct {
	Text       string
	Position   string
	FontScale  int
	Color      string // hex, e.g. "#ffffff"
	Background string // hex with alpha, e.g. "#00000080"
	Still      bool   // hold one edited frame for the whole segment
}

// EffectEnhancement applies a per-pixel or geometric effect.
type EffectEnhancement struct {
	Effect    string
	Intensity float64
	Factor    float64
	Still     bool
}

// SceneTransition synthesises frames between the segment's boundary frames.
type SceneTransition struct {
	Style    string
	Duration float64 // seconds of synthesised output; zero means the segment span
}

// Unedited passes the source range through.
type Unedited struct{}

// UnknownEdit carries a kind the editor does not implement.
type UnknownEdit struct {
	Name string
}

func (TextOverlay) Kind() EditKind       { return KindTextOverlay }
func (EffectEnhancement) Kind() EditKind { return KindEffectEnhancement }
func (SceneTransition) Kind() EditKind   { return KindSceneTransition }
func (Unedited) Kind() EditKind          { return KindUnedited }
func (u UnknownEdit) Kind() EditKind     { return EditKind(u.Name) }

func (TextOverlay) payload()       {}
func (EffectEnhancement) payload() {}
func (SceneTransition) payload()   {}
func (Unedited) payload()          {}
func (UnknownEdit) payload()       {}

// EditSegment is a time range of the source with the edit planned for it.
// After planning, segments are contiguous and cover [0, duration].
type EditSegment struct {
	Index   int
	Start   float64
	End     float64
	Kind    EditKind
	Payload Payload
	Audio   AudioPolicy
	// Window is the index of the analysis window that produced the segment,
	// -1 for gaps.
	Window int
	// Suggestion is the model's free text reason for the edit.
	Suggestion string
}

// Span is End minus Start.
func (s *EditSegment) Span() float64 {
	return s.End - s.Start
}

// Static reports whether a single representative frame is edited and held.
func (s *EditSegment) Static() bool {
	switch p := s.Payload.(type) {
	case TextOverlay:
		return p.Still
	case EffectEnhancement:
		return p.Still
	}
	return false
}

func (s *EditSegment) String() string {
	return fmt.Sprintf("segment %d [%.3f, %.3f) %s", s.Index, s.Start, s.End, s.Kind)
}
