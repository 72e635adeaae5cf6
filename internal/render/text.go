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
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	DefaultTextColor       = color.RGBA{255, 255, 255, 255}
	DefaultBackgroundColor = color.RGBA{0, 0, 0, 128} // black@0.5
)

// TextStyle controls how overlay text is laid out.
type TextStyle struct {
	Text       string
	Position   string // top, center, bottom or "x,y"
	Scale      int    // integer magnification of the 7x13 bitmap face
	Color      color.RGBA
	Background color.RGBA
	// Border is the padding around the text inside the background box, in
	// unscaled pixels.
	Border int
}

// TextBox returns the rectangle the overlay occupies in a frame of the given
// size. The box always lies inside the frame.
func TextBox(bounds image.Rectangle, style TextStyle) image.Rectangle {
	lines, scale := layout(bounds, style)
	if len(lines) == 0 {
		return image.Rectangle{}
	}
	return placeBox(bounds, style, lines, scale)
}

// DrawText renders style.Text on a copy of src.
func DrawText(src *image.RGBA, style TextStyle) *image.RGBA {
	dst := Clone(src)
	bounds := dst.Bounds()
	lines, scale := layout(bounds, style)
	if len(lines) == 0 {
		return dst
	}
	box := placeBox(bounds, style, lines, scale)
	draw.Draw(dst, box, &image.Uniform{C: style.Background}, image.Point{}, draw.Over)

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	pad := style.Border * scale
	for i, line := range lines {
		mask := glyphMask(line)
		w := mask.Bounds().Dx() * scale
		h := mask.Bounds().Dy() * scale
		scaled := resize.Resize(uint(w), uint(h), mask, resize.NearestNeighbor)
		// Lines are centred horizontally inside the box.
		x := box.Min.X + (box.Dx()-w)/2
		y := box.Min.Y + pad + i*lineHeight*scale
		r := image.Rect(x, y, x+w, y+h).Intersect(box)
		draw.DrawMask(dst, r, &image.Uniform{C: style.Color}, image.Point{}, scaled, image.Point{X: r.Min.X - x, Y: r.Min.Y - y}, draw.Over)
	}
	return dst
}

// glyphMask draws one line of text in opaque white on a transparent canvas.
func glyphMask(line string) *image.RGBA {
	face := basicfont.Face7x13
	w := font.MeasureString(face, line).Ceil()
	h := face.Metrics().Height.Ceil()
	if w < 1 {
		w = 1
	}
	mask := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(line)
	return mask
}

// layout wraps the text to the frame width and lowers the scale until the
// block fits. Text that cannot fit even at scale 1 is wrapped per character.
func layout(bounds image.Rectangle, style TextStyle) ([]string, int) {
	text := strings.TrimSpace(style.Text)
	if text == "" {
		return nil, 0
	}
	scale := style.Scale
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	for ; scale >= 1; scale-- {
		maxWidth := bounds.Dx() - 2*style.Border*scale
		if maxWidth < 1 {
			continue
		}
		lines := WrapText(text, maxWidth/scale)
		if len(lines)*lineHeight*scale+2*style.Border*scale <= bounds.Dy() || scale == 1 {
			return lines, scale
		}
	}
	return WrapText(text, bounds.Dx()), 1
}

// WrapText breaks text greedily on spaces so that no line is wider than
// width pixels at scale 1. Lengths are counted in runes.
func WrapText(text string, width int) []string {
	face := basicfont.Face7x13
	advance := font.MeasureString(face, "M").Ceil()
	maxChars := width / advance
	if maxChars < 1 {
		maxChars = 1
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current []rune
		for _, field := range strings.Fields(paragraph) {
			word := []rune(field)
			for len(word) > maxChars {
				if len(current) > 0 {
					lines = append(lines, string(current))
					current = nil
				}
				lines = append(lines, string(word[:maxChars]))
				word = word[maxChars:]
			}
			switch {
			case len(current) == 0:
				current = word
			case len(current)+1+len(word) <= maxChars:
				current = append(append(current, ' '), word...)
			default:
				lines = append(lines, string(current))
				current = word
			}
		}
		if len(current) > 0 {
			lines = append(lines, string(current))
		}
	}
	return lines
}

func placeBox(bounds image.Rectangle, style TextStyle, lines []string, scale int) image.Rectangle {
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	widest := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > widest {
			widest = w
		}
	}
	pad := style.Border * scale
	w := widest*scale + 2*pad
	h := len(lines)*lineHeight*scale + 2*pad

	var x, y int
	switch strings.ToLower(strings.TrimSpace(style.Position)) {
	case "top":
		x = (bounds.Dx() - w) / 2
		y = bounds.Dy() / 20
	case "bottom":
		x = (bounds.Dx() - w) / 2
		y = bounds.Dy() - h - bounds.Dy()/20
	case "", "center":
		x = (bounds.Dx() - w) / 2
		y = (bounds.Dy() - h) / 2
	default:
		x, y = parsePoint(style.Position, (bounds.Dx()-w)/2, (bounds.Dy()-h)/2)
	}
	return clampRect(image.Rect(x, y, x+w, y+h).Add(bounds.Min), bounds)
}

func parsePoint(in string, fx, fy int) (int, int) {
	xs, ys, ok := strings.Cut(in, ",")
	if !ok {
		return fx, fy
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return fx, fy
	}
	return x, y
}

// clampRect moves r inside bounds, shrinking it only when it is larger.
func clampRect(r, bounds image.Rectangle) image.Rectangle {
	if r.Dx() > bounds.Dx() {
		r.Max.X = r.Min.X + bounds.Dx()
	}
	if r.Dy() > bounds.Dy() {
		r.Max.Y = r.Min.Y + bounds.Dy()
	}
	if r.Min.X < bounds.Min.X {
		r = r.Add(image.Pt(bounds.Min.X-r.Min.X, 0))
	}
	if r.Min.Y < bounds.Min.Y {
		r = r.Add(image.Pt(0, bounds.Min.Y-r.Min.Y))
	}
	if r.Max.X > bounds.Max.X {
		r = r.Add(image.Pt(bounds.Max.X-r.Max.X, 0))
	}
	if r.Max.Y > bounds.Max.Y {
		r = r.Add(image.Pt(0, bounds.Max.Y-r.Max.Y))
	}
	return r
}
