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

package render_test

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jaycherian/gcp-go-video-editor/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for p := 0; p < len(img.Pix); p += 4 {
		img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestTextBoxStaysInsideFrame(t *testing.T) {
	bounds := image.Rect(0, 0, 320, 180)
	for _, pos := range []string{"top", "center", "bottom", "300,170", "-50,-50", "nonsense"} {
		style := render.TextStyle{Text: "Breaking news from the field today", Position: pos, Scale: 3, Border: 5}
		box := render.TextBox(bounds, style)
		assert.False(t, box.Empty(), pos)
		assert.True(t, box.In(bounds), "%s: %v outside %v", pos, box, bounds)
	}

	top := render.TextBox(bounds, render.TextStyle{Text: "x", Position: "top", Scale: 2, Border: 5})
	bottom := render.TextBox(bounds, render.TextStyle{Text: "x", Position: "bottom", Scale: 2, Border: 5})
	assert.Less(t, top.Min.Y, bottom.Min.Y)
}

func TestDrawTextOnlyTouchesBox(t *testing.T) {
	src := solid(160, 90, color.RGBA{10, 20, 30, 255})
	style := render.TextStyle{Text: "Hi", Position: "center", Scale: 2, Color: render.DefaultTextColor, Background: render.DefaultBackgroundColor, Border: 4}
	out := render.DrawText(src, style)
	box := render.TextBox(src.Bounds(), style)

	assert.Equal(t, color.RGBA{10, 20, 30, 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, src.RGBAAt(box.Min.X, box.Min.Y), "source untouched")
	assert.NotEqual(t, src.RGBAAt(box.Min.X, box.Min.Y), out.RGBAAt(box.Min.X, box.Min.Y))

	empty := render.DrawText(src, render.TextStyle{Text: "   "})
	assert.Equal(t, src.Pix, empty.Pix)
}

func TestEffectsDoNotModifySource(t *testing.T) {
	src := solid(40, 30, color.RGBA{100, 150, 200, 255})
	before := append([]uint8(nil), src.Pix...)
	for _, name := range []string{"brightness", "contrast", "highlight", "blur", "zoom", "grayscale", "vignette"} {
		out, err := render.ApplyEffect(src, name, render.EffectParams{})
		require.NoError(t, err, name)
		assert.Equal(t, src.Bounds(), out.Bounds(), name)
	}
	assert.Equal(t, before, src.Pix)

	_, err := render.ApplyEffect(src, "sepia", render.EffectParams{})
	var unknown *render.ErrUnknownEffect
	assert.ErrorAs(t, err, &unknown)
	assert.False(t, render.KnownEffect("sepia"))
	assert.True(t, render.KnownEffect(" Blur "))
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), uint8((x * y) % 256), 255})
		}
	}
	return img
}

// naiveBlur averages every window directly.
func naiveBlur(src *image.RGBA, radius int) *image.RGBA {
	b := src.Bounds()
	clampTo := func(v, n int) int { return max(0, min(v, n-1)) }
	pass := func(in *image.RGBA, horizontal bool) *image.RGBA {
		out := image.NewRGBA(b)
		n := 2*radius + 1
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				var sum [4]int
				for k := -radius; k <= radius; k++ {
					px, py := x, y
					if horizontal {
						px = clampTo(x+k, b.Dx())
					} else {
						py = clampTo(y+k, b.Dy())
					}
					c := in.RGBAAt(px, py)
					sum[0], sum[1], sum[2], sum[3] = sum[0]+int(c.R), sum[1]+int(c.G), sum[2]+int(c.B), sum[3]+int(c.A)
				}
				out.SetRGBA(x, y, color.RGBA{uint8((sum[0] + n/2) / n), uint8((sum[1] + n/2) / n), uint8((sum[2] + n/2) / n), uint8((sum[3] + n/2) / n)})
			}
		}
		return out
	}
	return pass(pass(src, true), false)
}

func TestBoxBlurMatchesDirectAverage(t *testing.T) {
	src := gradient(23, 11)
	for _, radius := range []int{1, 3, 15} {
		assert.Equal(t, naiveBlur(src, radius).Pix, render.BoxBlur(src, radius).Pix, "radius %d", radius)
	}
}

func TestExtremeEffectParamsAreBounded(t *testing.T) {
	src := gradient(64, 36)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, p := range []render.EffectParams{
			{Intensity: 1e6}, {Intensity: -1e6}, {Intensity: 1e300}, {Factor: 1e9}, {Factor: -3},
		} {
			for _, name := range []string{"blur", "brightness", "contrast", "highlight", "zoom", "vignette"} {
				out, err := render.ApplyEffect(src, name, p)
				assert.NoError(t, err, name)
				assert.Equal(t, src.Bounds(), out.Bounds(), name)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("effects with extreme parameters did not finish")
	}

	huge, err := render.ApplyEffect(src, "blur", render.EffectParams{Intensity: 1e6})
	require.NoError(t, err)
	assert.Equal(t, render.BoxBlur(src, render.MaxBlurRadius).Pix, huge.Pix)

	zoomed, err := render.ApplyEffect(src, "zoom", render.EffectParams{Factor: 1e9})
	require.NoError(t, err)
	assert.Equal(t, render.Zoom(src, render.MaxZoom).Pix, zoomed.Pix)

	dark, err := render.ApplyEffect(src, "brightness", render.EffectParams{Intensity: -1e9})
	require.NoError(t, err)
	assert.Equal(t, render.Brightness(src, -1).Pix, dark.Pix)
}

func TestWrapTextKeepsRunesWhole(t *testing.T) {
	lines := render.WrapText("aéééééééééééé", 28)
	require.NotEmpty(t, lines)
	joined := ""
	for _, line := range lines {
		assert.True(t, utf8.ValidString(line), "%q", line)
		assert.LessOrEqual(t, utf8.RuneCountInString(line), 4)
		joined += line
	}
	assert.Equal(t, "aéééééééééééé", joined)

	assert.Equal(t, []string{"über", "café"}, render.WrapText("über café", 28))
}

func TestBrightnessAndGrayscale(t *testing.T) {
	src := solid(4, 4, color.RGBA{100, 100, 100, 255})
	brighter := render.Brightness(src, 0.5)
	assert.Greater(t, brighter.Pix[0], src.Pix[0])

	gray := render.Grayscale(solid(2, 2, color.RGBA{200, 50, 10, 255}))
	px := gray.RGBAAt(0, 0)
	assert.Equal(t, px.R, px.G)
	assert.Equal(t, px.G, px.B)
}

func TestTransitionFrames(t *testing.T) {
	a := solid(8, 8, color.RGBA{0, 0, 0, 255})
	b := solid(8, 8, color.RGBA{255, 255, 255, 255})

	frames, err := render.Transition(a, b, "", 3)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Pix[0], frames[i-1].Pix[0])
	}
	assert.NotEqual(t, a.Pix[0], frames[0].Pix[0])
	assert.NotEqual(t, b.Pix[0], frames[2].Pix[0])

	wipe, err := render.Transition(a, b, "wipe_left", 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), wipe[0].RGBAAt(0, 0).R)
	assert.Equal(t, uint8(0), wipe[0].RGBAAt(7, 0).R)

	_, err = render.Transition(a, b, "spin", 2)
	assert.Error(t, err)
	_, err = render.Transition(a, solid(4, 4, color.RGBA{}), "fade", 2)
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	fallback := color.RGBA{1, 2, 3, 4}
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, render.ParseColor("white", fallback))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, render.ParseColor("#FF0000", fallback))
	assert.Equal(t, color.RGBA{0, 0, 0, 128}, render.ParseColor("black@0.5", fallback))
	assert.Equal(t, fallback, render.ParseColor("#12", fallback))
	assert.Equal(t, fallback, render.ParseColor("", fallback))
}

func TestPNGRoundTrip(t *testing.T) {
	src := solid(5, 3, color.RGBA{9, 8, 7, 255})
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, render.SavePNG(path, src))
	got, err := render.LoadPNG(path)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, got.Pix)
}
