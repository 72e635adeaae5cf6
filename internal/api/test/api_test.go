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
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-editor/internal/api"
	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	runs      map[string]*model.EditRun
	uploaded  []byte
	uploadErr error
	lastLimit int
}

func (f *fakeStore) Get(_ context.Context, id string) (*model.EditRun, error) {
	if r, ok := f.runs[id]; ok {
		return r, nil
	}
	return nil, services.ErrRunNotFound
}

func (f *fakeStore) List(_ context.Context, limit int) ([]*model.EditRun, error) {
	f.lastLimit = limit
	out := make([]*model.EditRun, 0)
	for _, r := range f.runs {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) Stats(_ context.Context) (*services.RunStats, error) {
	return &services.RunStats{Total: 3, Succeeded: 2, Failed: 1, ErrorKinds: map[string]int64{"AnalysisError": 1}}, nil
}

func (f *fakeStore) GenerateSignedURL(_ context.Context, uri string, _ time.Duration) (string, error) {
	return "https://signed.example/" + uri[len("gs://"):], nil
}

func (f *fakeStore) Upload(_ context.Context, filename string, r io.Reader, contentType string) (*cloud.GCSObject, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded, _ = io.ReadAll(r)
	return &cloud.GCSObject{Bucket: "in", Name: "uploads/x-" + filename, MIMEType: contentType}, nil
}

func newRouter(store api.EditStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	api.EditRouter(v1, store)
	api.Dashboard(v1, store)
	return r
}

func newStore() *fakeStore {
	return &fakeStore{runs: map[string]*model.EditRun{
		"ok":     {RunId: "ok", Status: model.RunStatusSucceeded, OutputPath: "gs://out/enhanced_a.mp4"},
		"failed": {RunId: "failed", Status: model.RunStatusFailed, ErrorKind: "ExtractionError"},
	}}
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetRun(t *testing.T) {
	r := newRouter(newStore())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/edits/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var run model.EditRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "ok", run.RunId)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/edits/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRuns(t *testing.T) {
	store := newStore()
	r := newRouter(store)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/edits?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, store.lastLimit)
	var runs []*model.EditRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/edits?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamRedirects(t *testing.T) {
	r := newRouter(newStore())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/edits/ok/stream", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://signed.example/out/enhanced_a.mp4", w.Header().Get("Location"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/edits/failed/stream", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpload(t *testing.T) {
	store := newStore()
	r := newRouter(store)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "clip.mp4")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("video-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/edits", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := serve(r, req)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "video-bytes", string(store.uploaded))

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "gs://in/uploads/x-clip.mp4", out["uri"])

	store.uploadErr = errors.New("boom")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/edits", bytes.NewReader(nil))
	w = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	r := newRouter(newStore())
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats services.RunStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 1, stats.ErrorKinds["AnalysisError"])
}
