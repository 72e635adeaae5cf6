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

package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Encoder defaults, used where the source does not say otherwise.
const (
	DefaultVideoCodec  = "libx264"
	DefaultAudioCodec  = "aac"
	DefaultPixelFormat = "yuv420p"
	DefaultCRF         = 23
	DefaultPreset      = "medium"
	AudioSampleRate    = 48000
	AudioChannels      = 2
)

// Options configures the ffmpeg backed Processor.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	// VideoCodec is the encoder used when the source codec has no known
	// encoder.
	VideoCodec  string
	CRF         int
	Preset      string
}

// FFmpeg implements Processor by running the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	videoCodec  string
	crf         int
	preset      string
	logger      *slog.Logger
}

// NewFFmpeg resolves both binaries on PATH (or as given) and fills encoder defaults.
func NewFFmpeg(opts Options) (*FFmpeg, error) {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	ffmpegPath, err := exec.LookPath(opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	ffprobePath, err := exec.LookPath(opts.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}
	f := &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		videoCodec:  opts.VideoCodec,
		crf:         opts.CRF,
		preset:      opts.Preset,
		logger:      slog.Default().With("component", "ffmpeg"),
	}
	if f.videoCodec == "" {
		f.videoCodec = DefaultVideoCodec
	}
	if f.crf <= 0 {
		f.crf = DefaultCRF
	}
	if f.preset == "" {
		f.preset = DefaultPreset
	}
	return f, nil
}

// runStream executes a single input, single output graph built with ffmpeg-go.
func (f *FFmpeg) runStream(ctx context.Context, stream *ffmpeg.Stream) error {
	return f.runArgs(ctx, stream.GetArgs())
}

func (f *FFmpeg) runArgs(ctx context.Context, args []string) error {
	full := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, args...)
	f.logger.DebugContext(ctx, "executing ffmpeg", "args", full)

	cmd := exec.CommandContext(ctx, f.ffmpegPath, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// videoEncoders maps a probed codec name to the encoder producing it.
var videoEncoders = map[string]string{
	"h264":  "libx264",
	"hevc":  "libx265",
	"vp8":   "libvpx",
	"vp9":   "libvpx-vp9",
	"av1":   "libaom-av1",
	"mpeg4": "mpeg4",
}

var audioEncoders = map[string]string{
	"aac":    "aac",
	"mp3":    "libmp3lame",
	"opus":   "libopus",
	"vorbis": "libvorbis",
	"ac3":    "ac3",
	"flac":   "flac",
}

// VideoEncoderFor returns the encoder that writes codec, or fallback when
// there is none.
func VideoEncoderFor(codec string, fallback string) string {
	if enc, ok := videoEncoders[codec]; ok {
		return enc
	}
	return fallback
}

// AudioEncoderFor returns the encoder that writes codec, aac otherwise.
func AudioEncoderFor(codec string) string {
	if enc, ok := audioEncoders[codec]; ok {
		return enc
	}
	return DefaultAudioCodec
}

// encodeArgs are the settings of every encoded clip. They follow the
// source streams (codec, pixel format, frame rate, sample rate, channels)
// so that encoded clips and stream-copied source ranges can be joined by
// the concat demuxer without another encode. source may be nil.
func (f *FFmpeg) encodeArgs(source *model.VideoAsset, fps float64, withAudio bool) ffmpeg.KwArgs {
	codec, pixFmt := f.videoCodec, DefaultPixelFormat
	audioCodec, rate, channels := DefaultAudioCodec, AudioSampleRate, AudioChannels
	if source != nil {
		codec = VideoEncoderFor(source.VideoCodec, f.videoCodec)
		if source.PixelFormat != "" {
			pixFmt = source.PixelFormat
		}
		audioCodec = AudioEncoderFor(source.AudioCodec)
		if source.SampleRate > 0 {
			rate = source.SampleRate
		}
		if source.Channels > 0 {
			channels = source.Channels
		}
	}

	args := ffmpeg.KwArgs{"c:v": codec, "pix_fmt": pixFmt}
	switch codec {
	case "libx264", "libx265":
		args["crf"] = f.crf
		args["preset"] = f.preset
	case "libvpx-vp9", "libaom-av1":
		args["crf"] = f.crf
		args["b:v"] = 0
	}
	if fps > 0 {
		args["r"] = formatSeconds(fps)
	}
	if withAudio {
		args["c:a"] = audioCodec
		args["ar"] = rate
		args["ac"] = channels
	}
	return args
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
