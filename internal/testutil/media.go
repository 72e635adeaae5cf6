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

package test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
	"github.com/jaycherian/gcp-go-video-editor/internal/render"
)

// Fake frame geometry.
const (
	FakeWidth  = 64
	FakeHeight = 36
)

// FrameColor is the flat color of source frame i in a FakeProcessor video.
func FrameColor(i int) color.RGBA {
	return color.RGBA{R: uint8(i * 7 % 256), G: uint8(i * 13 % 256), B: 128, A: 255}
}

// FakeFrame renders source frame i.
func FakeFrame(i int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, FakeWidth, FakeHeight))
	c := FrameColor(i)
	for p := 0; p < len(img.Pix); p += 4 {
		img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// MP4Header is the start of an ISO media file, enough for container sniffing.
var MP4Header = append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypmp42\x00\x00\x00\x00mp42isom")...)

// NewFakeAsset writes a placeholder source file and describes it as a video
// of the given duration and frame rate. The file starts with an MP4 header.
func NewFakeAsset(dir string, duration float64, fps float64) (*model.VideoAsset, error) {
	path := filepath.Join(dir, "source.mp4")
	body := append(append([]byte(nil), MP4Header...), fmt.Sprintf("source %.3fs@%.3f\n", duration, fps)...)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, err
	}
	return &model.VideoAsset{
		Path:        path,
		Duration:    duration,
		FrameRate:   fps,
		Width:       FakeWidth,
		Height:      FakeHeight,
		VideoCodec:  "h264",
		PixelFormat: "yuv420p",
		HasAudio:    true,
		AudioCodec:  "aac",
		MIMEType:    "video/mp4",
	}, nil
}

// FakeProcessor implements media.Processor on plain files. Frames are flat
// colored PNGs, clips are text files describing what was encoded, and Concat
// joins the clip files so the output records the stitching order.
type FakeProcessor struct {
	Asset *model.VideoAsset

	// DecodableUntil, when positive, is the last timestamp with a decodable
	// frame. It models a truncated file whose header reports a longer duration.
	DecodableUntil float64
	// FailClip makes FramesToClip fail for outputs under this segment dir name.
	FailClip string
	// KeyframeTimes are the keyframes reported by Keyframes. Nil means every
	// frame is a keyframe.
	KeyframeTimes []float64
	// FailStreamCopy makes CopyRange fail for partial ranges without
	// re-encoding, like a container that cannot be cut without decoding.
	FailStreamCopy bool
	// Block, when set, holds every FramesToClip call until closed or the
	// context is done.
	Block chan struct{}

	mu        sync.Mutex
	clips     []media.ClipSpec
	copies    []string
	active    int32
	maxActive int32
}

var _ media.Processor = (*FakeProcessor)(nil)

func (f *FakeProcessor) Probe(_ context.Context, path string) (*model.VideoAsset, error) {
	if f.Asset == nil {
		return nil, fmt.Errorf("no video stream in %s", path)
	}
	a := *f.Asset
	a.Path = path
	return &a, nil
}

func (f *FakeProcessor) ExtractFrameAt(ctx context.Context, asset *model.VideoAsset, t float64, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t < 0 || t > asset.Duration+model.TimeEpsilon || (f.DecodableUntil > 0 && t > f.DecodableUntil+model.TimeEpsilon) {
		return fmt.Errorf("no frame at %.3fs", t)
	}
	i := asset.FrameIndexAt(t)
	if last := asset.FrameCount() - 1; i > last {
		i = last
	}
	return render.SavePNG(output, FakeFrame(i))
}

func (f *FakeProcessor) ExtractFrames(ctx context.Context, asset *model.VideoAsset, first int, count int, dir string) ([]string, error) {
	var paths []string
	for i := first; i < first+count && i < asset.FrameCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.DecodableUntil > 0 && asset.FrameTime(i) > f.DecodableUntil+model.TimeEpsilon {
			return nil, fmt.Errorf("decode error at frame %d", i)
		}
		path := filepath.Join(dir, fmt.Sprintf("raw-%06d.png", i-first+1))
		if err := render.SavePNG(path, FakeFrame(i)); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (f *FakeProcessor) FramesToClip(ctx context.Context, spec media.ClipSpec) error {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.FailClip != "" && strings.Contains(spec.Output, f.FailClip) {
		return fmt.Errorf("encoder exited with status 1")
	}
	for _, frame := range spec.Frames {
		if _, err := os.Stat(frame); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.clips = append(f.clips, spec)
	f.mu.Unlock()
	body := fmt.Sprintf("clip %s frames=%d duration=%.3f mute=%t\n", filepath.Base(filepath.Dir(spec.Output)), len(spec.Frames), spec.Duration(), spec.Mute)
	return os.WriteFile(spec.Output, []byte(body), 0o644)
}

func (f *FakeProcessor) CopyRange(ctx context.Context, asset *model.VideoAsset, start float64, end float64, output string, reencode bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	whole := start == 0 && end == asset.Duration
	if f.FailStreamCopy && !reencode && !whole {
		return fmt.Errorf("could not write header: invalid argument")
	}
	f.mu.Lock()
	f.copies = append(f.copies, output)
	f.mu.Unlock()
	if !reencode && whole {
		data, err := os.ReadFile(asset.Path)
		if err != nil {
			return err
		}
		return os.WriteFile(output, data, 0o644)
	}
	body := fmt.Sprintf("copy %.3f-%.3f reencode=%t\n", start, end, reencode)
	return os.WriteFile(output, []byte(body), 0o644)
}

func (f *FakeProcessor) Keyframes(ctx context.Context, asset *model.VideoAsset) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.KeyframeTimes != nil {
		return append([]float64(nil), f.KeyframeTimes...), nil
	}
	times := make([]float64, asset.FrameCount())
	for i := range times {
		times[i] = asset.FrameTime(i)
	}
	return times, nil
}

func (f *FakeProcessor) Concat(ctx context.Context, clips []string, output string) error {
	var buf bytes.Buffer
	for _, c := range clips {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(c)
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	return os.WriteFile(output, buf.Bytes(), 0o644)
}

// Clips returns the specs passed to FramesToClip.
func (f *FakeProcessor) Clips() []media.ClipSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]media.ClipSpec(nil), f.clips...)
}

// Copies returns the outputs written by CopyRange.
func (f *FakeProcessor) Copies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.copies...)
}

// MaxConcurrentClips is the highest number of FramesToClip calls seen in
// flight at once.
func (f *FakeProcessor) MaxConcurrentClips() int {
	return int(atomic.LoadInt32(&f.maxActive))
}
