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

package editing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called once per finished segment.
type ProgressFunc func(seg *model.EditSegment, clip *model.EditedClip)

// Renderer extracts and edits segments on a bounded worker pool.
type Renderer struct {
	extractor *Extractor
	applier   *Applier
	workers   int
	progress  ProgressFunc
	tracer    trace.Tracer
}

// NewRenderer creates a Renderer running at most workers segments at once.
// A workers value below 1 selects the number of CPUs.
func NewRenderer(extractor *Extractor, applier *Applier, workers int) *Renderer {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Renderer{
		extractor: extractor,
		applier:   applier,
		workers:   workers,
		tracer:    noop.NewTracerProvider().Tracer("editing"),
	}
}

// WithTracer records one span per segment.
func (r *Renderer) WithTracer(tracer trace.Tracer) *Renderer {
	if tracer != nil {
		r.tracer = tracer
	}
	return r
}

// OnProgress registers a callback for finished segments. It may be called
// from several goroutines.
func (r *Renderer) OnProgress(fn ProgressFunc) *Renderer {
	r.progress = fn
	return r
}

func (r *Renderer) Workers() int {
	return r.workers
}

// Render produces one clip per segment. The result is indexed like
// segments regardless of completion order. The first failure cancels the
// jobs still running and is returned.
func (r *Renderer) Render(ctx context.Context, asset *model.VideoAsset, segments []*model.EditSegment, workDir string) ([]*model.EditedClip, error) {
	clips := make([]*model.EditedClip, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, seg := range segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			clip, err := r.renderSegment(gctx, asset, seg, workDir)
			if err != nil {
				return err
			}
			clips[i] = clip
			if r.progress != nil {
				r.progress(seg, clip)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancelled parent can stop the loop before any job fails.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return clips, nil
}

func (r *Renderer) renderSegment(ctx context.Context, asset *model.VideoAsset, seg *model.EditSegment, workDir string) (clip *model.EditedClip, err error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("segment_%04d", seg.Index))
	span.SetAttributes(
		attribute.Int("sequence", seg.Index),
		attribute.Float64("start", seg.Start),
		attribute.Float64("end", seg.End),
		attribute.String("kind", string(seg.Kind)),
	)
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, KindOf(err))
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "segment rendered")
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set, err := r.extractor.Extract(ctx, asset, seg, workDir)
	if err != nil {
		return nil, err
	}
	defer set.Release()

	clip, err = r.applier.Apply(ctx, asset, set, workDir)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "segment rendered", "segment", seg.Index, "kind", seg.Kind, "frames", set.Len(), "clip", clip.Path)
	return clip, nil
}
