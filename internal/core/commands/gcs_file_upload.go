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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
)

// GCSFileUpload copies the edited video to the output bucket. The object is
// named after the triggering object with the enhanced_ prefix.
type GCSFileUpload struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
}

func NewGCSFileUpload(name string, client *storage.Client, bucket string) *GCSFileUpload {
	out := &GCSFileUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
	out.InputParamName = ParamOutputPath
	return out
}

func (c *GCSFileUpload) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)
	format := strings.TrimPrefix(filepath.Ext(path), ".")

	objectName := EditedObjectPrefix + filepath.Base(path)
	if original, ok := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject); ok {
		objectName = cloud.EditedObjectName(original.Name, format)
	}
	dest := &cloud.GCSObject{Bucket: c.bucket, Name: objectName, MIMEType: "video/" + format}

	dat, err := os.Open(path)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to open file %s: %w", path, err))
		return
	}
	defer dat.Close()

	writer := c.client.Bucket(dest.Bucket).Object(dest.Name).NewWriter(context.GetContext())
	writer.ContentType = dest.MIMEType
	if written, err := io.Copy(writer, dat); err != nil {
		_ = writer.Close()
		c.Fail(context, fmt.Errorf("failed to copy to %s after %d bytes: %w", dest.URI(), written, err))
		return
	}
	// Close finalizes the object; its error is the upload result.
	if err := writer.Close(); err != nil {
		c.Fail(context, fmt.Errorf("failed to finalize %s: %w", dest.URI(), err))
		return
	}

	if run, ok := context.Get(ParamEditRun).(*model.EditRun); ok {
		run.OutputPath = dest.URI()
	}
	slog.InfoContext(context.GetContext(), "uploaded edited video", "uri", dest.URI())
	c.Succeed(context)
	context.Add(cor.CtxOut, dest)
}
