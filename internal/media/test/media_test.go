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

package media_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-editor/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeJSON = `{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 1},
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
     "pix_fmt": "yuv420p", "r_frame_rate": "30000/1001", "avg_frame_rate": "0/0", "duration": "9.976"}
  ],
  "format": {"duration": "10.010000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseProbe(t *testing.T) {
	asset, err := media.ParseProbe("in.mp4", []byte(probeJSON))
	require.NoError(t, err)
	assert.Equal(t, "in.mp4", asset.Path)
	assert.Equal(t, 1920, asset.Width)
	assert.Equal(t, 1080, asset.Height)
	assert.Equal(t, "h264", asset.VideoCodec)
	assert.InDelta(t, 29.97, asset.FrameRate, 0.001)
	assert.Equal(t, 10.01, asset.Duration)
	assert.True(t, asset.HasAudio)
	assert.Equal(t, "aac", asset.AudioCodec)
	assert.Equal(t, 44100, asset.SampleRate)
	assert.Equal(t, 1, asset.Channels)
}

func TestParseKeyframes(t *testing.T) {
	out := "0.000000,K_\n0.033333,__\n2.000000,K_\nN/A,K_\n1.000000,K_\n\n"
	assert.Equal(t, []float64{0, 1, 2}, media.ParseKeyframes([]byte(out)))
	assert.Empty(t, media.ParseKeyframes(nil))
}

func TestEncoderFor(t *testing.T) {
	assert.Equal(t, "libx264", media.VideoEncoderFor("h264", "mpeg4"))
	assert.Equal(t, "libvpx-vp9", media.VideoEncoderFor("vp9", "libx264"))
	assert.Equal(t, "libx264", media.VideoEncoderFor("prores", "libx264"))
	assert.Equal(t, "libopus", media.AudioEncoderFor("opus"))
	assert.Equal(t, "aac", media.AudioEncoderFor(""))
}

func TestParseProbeWithoutVideo(t *testing.T) {
	_, err := media.ParseProbe("song.m4a", []byte(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"3"}}`))
	assert.Error(t, err)
	_, err = media.ParseProbe("junk", []byte(`not json`))
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 25.0, media.ParseFrameRate("25/1"))
	assert.Equal(t, 24.0, media.ParseFrameRate("24"))
	assert.Equal(t, 0.0, media.ParseFrameRate("0/0"))
	assert.Equal(t, 0.0, media.ParseFrameRate(""))
}

func TestFrameList(t *testing.T) {
	spec := media.ClipSpec{Frames: []string{"/w/a.png", "/w/b's.png"}, FrameRate: 4}
	assert.Equal(t, "ffconcat version 1.0\n"+
		"file '/w/a.png'\nduration 0.250000\n"+
		"file '/w/b'\\''s.png'\nduration 0.250000\n"+
		"file '/w/b'\\''s.png'\n", media.FrameList(spec))
	assert.Equal(t, 0.5, spec.Duration())

	held := media.ClipSpec{Frames: []string{"/w/a.png"}, FrameRate: 30, HoldSeconds: 2.5}
	assert.Equal(t, "ffconcat version 1.0\nfile '/w/a.png'\nduration 2.500000\nfile '/w/a.png'\n", media.FrameList(held))
	assert.Equal(t, 2.5, held.Duration())
}

func TestConcatList(t *testing.T) {
	assert.Equal(t, "file '/w/seg-0000/clip.mp4'\nfile '/w/seg-0001/clip.mp4'\n",
		media.ConcatList([]string{"/w/seg-0000/clip.mp4", "/w/seg-0001/clip.mp4"}))
}

func TestDetectVideoMIME(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	header := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypmp42\x00\x00\x00\x00mp42isom")...)
	require.NoError(t, os.WriteFile(video, append(header, make([]byte, 512)...), 0o644))
	mime, err := media.DetectVideoMIME(video)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", mime)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("just some notes"), 0o644))
	_, err = media.DetectVideoMIME(text)
	assert.Error(t, err)
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp4")
	dst := filepath.Join(dir, "out", "b.mp4")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, media.MoveFile(src, dst))
	assert.NoFileExists(t, src)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
