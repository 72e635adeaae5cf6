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

import (
	"image"
	"log/slog"
	"math"
	"os"
)

// TimeEpsilon absorbs floating point noise when comparing timestamps in seconds.
const TimeEpsilon = 1e-6

// VideoAsset describes a probed source video. It is never mutated after probing.
type VideoAsset struct {
	Path        string
	Duration    float64 // seconds
	FrameRate   float64 // frames per second
	Width       int
	Height      int
	VideoCodec  string
	PixelFormat string
	HasAudio    bool
	AudioCodec  string
	SampleRate  int // audio samples per second
	Channels    int // audio channels
	MIMEType    string
}

// FrameCount is the number of decodable frames.
func (v *VideoAsset) FrameCount() int {
	if v.FrameRate <= 0 || v.Duration <= 0 {
		return 0
	}
	n := int(math.Ceil(v.Duration*v.FrameRate - TimeEpsilon))
	if n < 1 {
		n = 1
	}
	return n
}

// FrameIndexAt returns the index of the frame boundary at or before t.
func (v *VideoAsset) FrameIndexAt(t float64) int {
	if v.FrameRate <= 0 || t <= 0 {
		return 0
	}
	return int(math.Floor(t*v.FrameRate + TimeEpsilon))
}

// FrameTime is the presentation time of frame i.
func (v *VideoAsset) FrameTime(i int) float64 {
	if v.FrameRate <= 0 {
		return 0
	}
	return float64(i) / v.FrameRate
}

// Frame is one decoded still image taken from the source at Timestamp.
type Frame struct {
	Index     int
	Timestamp float64
	Path      string
	Image     *image.RGBA
}

// FrameSet is the ordered set of frames extracted for a single segment.
type FrameSet struct {
	Segment *EditSegment
	Frames  []*Frame
	Dir     string
	// Static marks a set holding one representative frame for a held edit.
	Static bool
}

// Len returns the number of frames.
func (f *FrameSet) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Frames)
}

// Release drops the decoded images and removes the frame directory.
// Safe to call more than once and on a nil set.
func (f *FrameSet) Release() {
	if f == nil {
		return
	}
	for _, fr := range f.Frames {
		fr.Image = nil
	}
	if f.Dir != "" {
		if err := os.RemoveAll(f.Dir); err != nil {
			slog.Warn("failed to release frame set", "dir", f.Dir, "error", err)
		}
		f.Dir = ""
	}
}

// EditedClip is the rendered result for one segment. Remux clips are a
// reference to the unchanged source range and carry no file of their own.
type EditedClip struct {
	Segment        *EditSegment
	SourceStart    float64
	SourceEnd      float64
	OutputDuration float64
	Remux          bool
	Path           string
	FrameCount     int
}

// Timeline is where each clip landed in the output.
type Timeline struct {
	Entries        []TimelineEntry
	OutputDuration float64
	OutputPath     string
}

// TimelineEntry places one clip on the output timeline.
type TimelineEntry struct {
	SegmentIndex int
	Kind         EditKind
	SourceStart  float64
	SourceEnd    float64
	OutputStart  float64
	OutputEnd    float64
}
