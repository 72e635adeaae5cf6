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
package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*history.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := history.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestRecordAndGet(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	run := model.NewEditRun("/videos/clip.mp4")
	run.Status = model.RunStatusFailed
	run.ErrorKind = "ExtractionError"
	run.DurationSeconds = 12
	run.SetSegments([]*model.EditSegment{
		{Index: 0, Start: 0, End: 2, Kind: model.KindTextOverlay, Suggestion: "title"},
		{Index: 1, Start: 2, End: 12, Kind: model.KindUnedited},
	})
	require.NoError(t, store.Record(ctx, run))

	got, err := store.Get(ctx, run.RunId)
	require.NoError(t, err)
	assert.Equal(t, run.InputPath, got.InputPath)
	assert.Equal(t, "ExtractionError", got.ErrorKind)
	assert.Equal(t, run.Segments, got.Segments)
	assert.WithinDuration(t, run.CreateDate, got.CreateDate, time.Microsecond)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestRecordReplacesOutcome(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	run := model.NewEditRun("/videos/clip.mp4")
	run.Status = model.RunStatusFailed
	require.NoError(t, store.Record(ctx, run))

	run.Status = model.RunStatusSucceeded
	run.OutputPath = "/videos/enhanced_clip.mp4"
	require.NoError(t, store.Record(ctx, run))

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusSucceeded, runs[0].Status)
	assert.Equal(t, "/videos/enhanced_clip.mp4", runs[0].OutputPath)
}

func TestListNewestFirst(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()

	base := time.Date(2024, 10, 11, 3, 4, 8, 0, time.UTC)
	for i, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		run := model.NewEditRun(name)
		run.Status = model.RunStatusSucceeded
		run.CreateDate = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Record(ctx, run))
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.mp4", runs[0].InputPath)
	assert.Equal(t, "b.mp4", runs[1].InputPath)

	// Reopening applies no migration twice and keeps the rows.
	require.NoError(t, store.Close())
	reopened, err := history.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	runs, err = reopened.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
