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
	"image/draw"
	"math"
	"strings"

	"github.com/nfnt/resize"
)

// Effect names understood by ApplyEffect.
const (
	EffectBrightness = "brightness"
	EffectContrast   = "contrast"
	EffectHighlight  = "highlight"
	EffectBlur       = "blur"
	EffectZoom       = "zoom"
	EffectGrayscale  = "grayscale"
	EffectVignette   = "vignette"
)

// EffectParams are the numeric knobs of an effect. Zero values select the
// defaults of each effect.
type EffectParams struct {
	Intensity float64
	Factor    float64
}

// ErrUnknownEffect is returned for effect names without an implementation.
type ErrUnknownEffect struct {
	Name string
}

func (e *ErrUnknownEffect) Error() string {
	return fmt.Sprintf("unknown effect %q", e.Name)
}

// KnownEffect reports whether name has an implementation.
func KnownEffect(name string) bool {
	switch normalize(name) {
	case EffectBrightness, EffectContrast, EffectHighlight, EffectBlur, EffectZoom, EffectGrayscale, EffectVignette:
		return true
	}
	return false
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Bounds applied to effect parameters. Values outside are clamped.
const (
	MaxBlurRadius = 64
	MaxZoom       = 8.0
	MaxContrast   = 5.0
)

// ApplyEffect returns a new image with the named effect applied to src.
// Parameters are clamped to each effect's range, so any input costs at most
// the work of the largest setting.
func ApplyEffect(src *image.RGBA, name string, p EffectParams) (*image.RGBA, error) {
	switch normalize(name) {
	case EffectBrightness:
		return Brightness(src, bound(orDefault(p.Intensity, 0.3), -1, 1)), nil
	case EffectContrast:
		return Contrast(src, bound(orDefault(p.Factor, orDefault(p.Intensity, 1.5)), 0, MaxContrast)), nil
	case EffectHighlight:
		return Highlight(src, bound(orDefault(p.Intensity, 0.7), 0, 1)), nil
	case EffectBlur:
		return BoxBlur(src, int(math.Round(bound(orDefault(p.Intensity, 5), 0, MaxBlurRadius)))), nil
	case EffectZoom:
		return Zoom(src, bound(orDefault(p.Factor, 1.2), 1, MaxZoom)), nil
	case EffectGrayscale:
		return Grayscale(src), nil
	case EffectVignette:
		return Vignette(src, bound(orDefault(p.Intensity, 0.5), 0, 1)), nil
	}
	return nil, &ErrUnknownEffect{Name: name}
}

func orDefault(v, d float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return d
	}
	return v
}

func bound(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// mapPixels applies fn to every colour channel through a lookup table.
func mapPixels(src *image.RGBA, fn func(v int) int) *image.RGBA {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(fn(i))
	}
	dst := Clone(src)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		dst.Pix[i] = lut[dst.Pix[i]]
		dst.Pix[i+1] = lut[dst.Pix[i+1]]
		dst.Pix[i+2] = lut[dst.Pix[i+2]]
	}
	return dst
}

// Brightness shifts every channel by amount*255, amount in [-1, 1].
func Brightness(src *image.RGBA, amount float64) *image.RGBA {
	shift := int(math.Round(amount * 255))
	return mapPixels(src, func(v int) int { return v + shift })
}

// Contrast scales every channel away from mid grey by factor.
func Contrast(src *image.RGBA, factor float64) *image.RGBA {
	return mapPixels(src, func(v int) int {
		return int(math.Round(float64(v-128)*factor)) + 128
	})
}

// Highlight brightens the frame slightly and darkens its edges so the centre
// stands out.
func Highlight(src *image.RGBA, intensity float64) *image.RGBA {
	return Vignette(Brightness(src, 0.1*intensity/0.7), 0.4*intensity)
}

// Grayscale converts to luma using integer BT.601 weights.
func Grayscale(src *image.RGBA) *image.RGBA {
	dst := Clone(src)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		y := (299*int(dst.Pix[i]) + 587*int(dst.Pix[i+1]) + 114*int(dst.Pix[i+2]) + 500) / 1000
		dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = uint8(y), uint8(y), uint8(y)
	}
	return dst
}

// Vignette darkens pixels by up to strength towards the corners.
func Vignette(src *image.RGBA, strength float64) *image.RGBA {
	dst := Clone(src)
	b := dst.Bounds()
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	maxD := math.Hypot(cx, cy)
	if maxD == 0 {
		return dst
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / maxD
			// Fixed point keeps the result independent of evaluation order.
			keep := int(math.Round((1 - strength*d*d) * 1024))
			if keep < 0 {
				keep = 0
			}
			o := dst.PixOffset(x+b.Min.X, y+b.Min.Y)
			for c := 0; c < 3; c++ {
				dst.Pix[o+c] = clamp8((int(dst.Pix[o+c])*keep + 512) >> 10)
			}
		}
	}
	return dst
}

// BoxBlur averages each pixel with its neighbours within radius, using two
// separable passes. Edges clamp. The radius is capped at MaxBlurRadius.
func BoxBlur(src *image.RGBA, radius int) *image.RGBA {
	if radius < 1 {
		return Clone(src)
	}
	if radius > MaxBlurRadius {
		radius = MaxBlurRadius
	}
	tmp := blurPass(src, radius, true)
	return blurPass(tmp, radius, false)
}

// blurPass runs a sliding window sum along every row or column, so the cost
// per pixel does not depend on the radius.
func blurPass(src *image.RGBA, radius int, horizontal bool) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	w, h := b.Dx(), b.Dy()
	lines, length := h, w
	if !horizontal {
		lines, length = w, h
	}
	n := 2*radius + 1
	offset := func(line, i int) int {
		if i < 0 {
			i = 0
		} else if i >= length {
			i = length - 1
		}
		if horizontal {
			return src.PixOffset(i+b.Min.X, line+b.Min.Y)
		}
		return src.PixOffset(line+b.Min.X, i+b.Min.Y)
	}
	for line := 0; line < lines; line++ {
		var sum [4]int
		for k := -radius; k <= radius; k++ {
			o := offset(line, k)
			for c := 0; c < 4; c++ {
				sum[c] += int(src.Pix[o+c])
			}
		}
		for i := 0; i < length; i++ {
			var d int
			if horizontal {
				d = dst.PixOffset(i+b.Min.X, line+b.Min.Y)
			} else {
				d = dst.PixOffset(line+b.Min.X, i+b.Min.Y)
			}
			for c := 0; c < 4; c++ {
				dst.Pix[d+c] = uint8((sum[c] + n/2) / n)
			}
			in, out := offset(line, i+radius+1), offset(line, i-radius)
			for c := 0; c < 4; c++ {
				sum[c] += int(src.Pix[in+c]) - int(src.Pix[out+c])
			}
		}
	}
	return dst
}

// Zoom crops the centre 1/factor of the frame and scales it back to the
// original size. Factors at or below 1 return a copy.
func Zoom(src *image.RGBA, factor float64) *image.RGBA {
	if factor <= 1 {
		return Clone(src)
	}
	b := src.Bounds()
	cw := int(math.Round(float64(b.Dx()) / factor))
	ch := int(math.Round(float64(b.Dy()) / factor))
	if cw < 1 || ch < 1 {
		return Clone(src)
	}
	x0 := b.Min.X + (b.Dx()-cw)/2
	y0 := b.Min.Y + (b.Dy()-ch)/2
	crop := src.SubImage(image.Rect(x0, y0, x0+cw, y0+ch))
	scaled := resize.Resize(uint(b.Dx()), uint(b.Dy()), crop, resize.Bilinear)
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, scaled, scaled.Bounds().Min, draw.Src)
	return dst
}
