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
package commands

import (
	"errors"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
)

// AnalysisUploadCleanup deletes the copy of the source that VideoUpload
// placed in the input bucket. It passes CtxIn through untouched and does
// nothing when no copy was made.
type AnalysisUploadCleanup struct {
	cor.BaseCommand
	client *storage.Client
}

func NewAnalysisUploadCleanup(name string, client *storage.Client) *AnalysisUploadCleanup {
	out := &AnalysisUploadCleanup{BaseCommand: *cor.NewBaseCommand(name), client: client}
	out.InputParamName = GetVideoUploadObjectParameterName()
	return out
}

func (c *AnalysisUploadCleanup) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute removes the object. A failed delete is logged, never fatal: the
// analysis has already been received.
func (c *AnalysisUploadCleanup) Execute(context cor.Context) {
	context.Add(cor.CtxOut, context.Get(cor.CtxIn))
	obj, ok := context.Get(c.GetInputParam()).(*cloud.GCSObject)
	if !ok || c.client == nil {
		return
	}

	err := c.client.Bucket(obj.Bucket).Object(obj.Name).Delete(context.GetContext())
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		slog.WarnContext(context.GetContext(), "failed to delete analysis upload", "uri", obj.URI(), "error", err)
	}
	context.Remove(c.GetInputParam())

	c.Succeed(context)
}
