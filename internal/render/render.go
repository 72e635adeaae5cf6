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

// Package render holds the pixel operations applied to extracted frames.
// Every function is pure: it never modifies its input and returns the same
// pixels for the same arguments.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strconv"
	"strings"
)

// ToRGBA copies any image into a new RGBA with origin (0, 0).
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Clone returns a copy of src.
func Clone(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

// LoadPNG decodes a PNG file into RGBA.
func LoadPNG(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ToRGBA(img), nil
}

// EncodePNG encodes img with the default compression level.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	data, err := EncodePNG(img)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

var namedColors = map[string]color.RGBA{
	"white":  {255, 255, 255, 255},
	"black":  {0, 0, 0, 255},
	"yellow": {255, 255, 0, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 255, 0, 255},
	"blue":   {0, 0, 255, 255},
}

// ParseColor accepts a color name, #rrggbb or #rrggbbaa and returns it
// premultiplied. An optional "@alpha" suffix with alpha in [0, 1] overrides
// the alpha channel, as in "black@0.5".
func ParseColor(in string, fallback color.RGBA) color.RGBA {
	s := strings.ToLower(strings.TrimSpace(in))
	if s == "" {
		return fallback
	}
	alpha := -1.0
	if name, a, ok := strings.Cut(s, "@"); ok {
		if v, err := strconv.ParseFloat(a, 64); err == nil && v >= 0 && v <= 1 {
			alpha = v
		}
		s = name
	}
	c, ok := namedColors[s]
	if !ok {
		hex := strings.TrimPrefix(s, "#")
		if len(hex) != 6 && len(hex) != 8 {
			return fallback
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return fallback
		}
		if len(hex) == 6 {
			v = v<<8 | 0xff
		}
		c = color.RGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}
	}
	if alpha >= 0 {
		c.A = uint8(alpha*255 + 0.5)
	}
	// Colors are written unpremultiplied; draw expects premultiplied alpha.
	return color.RGBAModel.Convert(color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}).(color.RGBA)
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
