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
// Package api holds the HTTP routes of the editor server. Handlers read edit
// runs through an EditStore, normally a *services.EditService.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/services"
)

// MaxUploadBytes limits the size of a multipart upload.
const MaxUploadBytes = 2 << 30

// SignedURLTTL is the lifetime of stream links.
const SignedURLTTL = 2 * time.Hour

// EditStore is the subset of services.EditService used by the handlers.
type EditStore interface {
	Get(ctx context.Context, id string) (*model.EditRun, error)
	List(ctx context.Context, limit int) ([]*model.EditRun, error)
	Stats(ctx context.Context) (*services.RunStats, error)
	GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error)
	Upload(ctx context.Context, filename string, r io.Reader, contentType string) (*cloud.GCSObject, error)
}

// EditRouter registers the /edits routes.
//
// Routes:
//   - POST /edits: multipart upload (field "file") of a new source video.
//   - GET /edits: recent runs, bounded by ?limit=.
//   - GET /edits/:id: a single run.
//   - GET /edits/:id/stream: redirect to a signed URL of the edited video.
func EditRouter(r *gin.RouterGroup, store EditStore) {
	edits := r.Group("/edits")
	{
		edits.POST("", func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
			fh, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field \"file\""})
				return
			}
			contentType := fh.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			defer f.Close()

			obj, err := store.Upload(c.Request.Context(), fh.Filename, f, contentType)
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "upload failed", "file", fh.Filename, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"bucket": obj.Bucket, "name": obj.Name, "uri": obj.URI()})
		})

		edits.GET("", func(c *gin.Context) {
			limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
			if err != nil || limit <= 0 || limit > 500 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
				return
			}
			runs, err := store.List(c.Request.Context(), limit)
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "list runs failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
				return
			}
			c.JSON(http.StatusOK, runs)
		})

		edits.GET("/:id", func(c *gin.Context) {
			run, ok := getRun(c, store)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, run)
		})

		edits.GET("/:id/stream", func(c *gin.Context) {
			run, ok := getRun(c, store)
			if !ok {
				return
			}
			if run.Status != model.RunStatusSucceeded || run.OutputPath == "" {
				c.JSON(http.StatusConflict, gin.H{"error": "run has no edited video", "status": run.Status})
				return
			}
			u, err := store.GenerateSignedURL(c.Request.Context(), run.OutputPath, SignedURLTTL)
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "signing failed", "run_id", run.RunId, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign output url"})
				return
			}
			c.Redirect(http.StatusTemporaryRedirect, u)
		})
	}
}

func getRun(c *gin.Context, store EditStore) (*model.EditRun, bool) {
	run, err := store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "get run failed", "run_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read run"})
		return nil, false
	}
	return run, true
}
