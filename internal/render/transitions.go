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

package render

import (
	"fmt"
	"image"
	"math"
)

// Transition styles understood by Transition.
const (
	TransitionCrossfade = "crossfade"
	TransitionFade      = "fade" // alias of crossfade
	TransitionFadeBlack = "fade_black"
	TransitionWipeLeft  = "wipe_left"
	TransitionWipe      = "wipe" // alias of wipe_left
)

// KnownTransition reports whether style has an implementation. An empty
// style selects the crossfade.
func KnownTransition(style string) bool {
	switch normalize(style) {
	case "", TransitionCrossfade, TransitionFade, TransitionFadeBlack, TransitionWipeLeft, TransitionWipe:
		return true
	}
	return false
}

// Transition synthesises n frames going from a to b. Frame i shows progress
// (i+1)/(n+1), so neither endpoint is repeated verbatim.
func Transition(a, b *image.RGBA, style string, n int) ([]*image.RGBA, error) {
	if !KnownTransition(style) {
		return nil, fmt.Errorf("unknown transition %q", style)
	}
	if a.Rect.Dx() != b.Rect.Dx() || a.Rect.Dy() != b.Rect.Dy() {
		return nil, fmt.Errorf("transition frames differ in size: %v vs %v", a.Rect.Size(), b.Rect.Size())
	}
	out := make([]*image.RGBA, 0, n)
	for i := 0; i < n; i++ {
		// Progress in 1/1024 steps keeps blending in integer arithmetic.
		t := int(math.Round(float64(i+1) / float64(n+1) * 1024))
		switch normalize(style) {
		case TransitionFadeBlack:
			out = append(out, fadeThroughBlack(a, b, t))
		case TransitionWipeLeft, TransitionWipe:
			out = append(out, wipeLeft(a, b, t))
		default:
			out = append(out, Blend(a, b, t))
		}
	}
	return out, nil
}

// Blend mixes a and b with weight t/1024 on b. Both must be ToRGBA images
// of the same size.
func Blend(a, b *image.RGBA, t int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, a.Rect.Dx(), a.Rect.Dy()))
	for i := range dst.Pix {
		dst.Pix[i] = uint8((int(a.Pix[i])*(1024-t) + int(b.Pix[i])*t + 512) >> 10)
	}
	return dst
}

// fadeThroughBlack fades a out during the first half and b in during the second.
func fadeThroughBlack(a, b *image.RGBA, t int) *image.RGBA {
	src, level := a, 1024-2*t
	if t >= 512 {
		src, level = b, 2*t-1024
	}
	dst := Clone(src)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			dst.Pix[i+c] = uint8((int(dst.Pix[i+c])*level + 512) >> 10)
		}
	}
	return dst
}

// wipeLeft reveals b from the left edge.
func wipeLeft(a, b *image.RGBA, t int) *image.RGBA {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	edge := (w*t + 512) >> 10
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := a
			if x < edge {
				src = b
			}
			so := src.PixOffset(x+src.Rect.Min.X, y+src.Rect.Min.Y)
			do := dst.PixOffset(x, y)
			copy(dst.Pix[do:do+4], src.Pix[so:so+4])
		}
	}
	return dst
}
