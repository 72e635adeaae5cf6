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
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
)

// GCSToTempFile downloads the triggering object to a local temp file and
// hands its path on as ParamSourcePath. The file is removed by Close.
type GCSToTempFile struct {
	cor.BaseCommand
	client         *storage.Client
	tempFilePrefix string
}

func NewGCSToTempFile(name string, client *storage.Client, tempFilePrefix string) *GCSToTempFile {
	out := &GCSToTempFile{BaseCommand: *cor.NewBaseCommand(name), client: client, tempFilePrefix: tempFilePrefix}
	out.OutputParamName = ParamSourcePath
	return out
}

func (c *GCSToTempFile) Execute(context cor.Context) {
	msg := context.Get(c.GetInputParam()).(*cloud.GCSObject)

	reader, err := c.client.Bucket(msg.Bucket).Object(msg.Name).NewReader(context.GetContext())
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to create GCS reader for %s: %w", msg.URI(), err))
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close GCS reader", "error", err)
		}
	}()

	// Keep the extension, ffprobe and the container sniffing rely on it.
	tempFile, err := os.CreateTemp("", c.tempFilePrefix+"*"+path.Ext(msg.Name))
	if err != nil {
		c.Fail(context, fmt.Errorf("could not create temp file: %w", err))
		return
	}
	context.AddTempFile(tempFile.Name())

	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to copy %s to local file after %d bytes: %w", msg.URI(), written, err))
		return
	}

	slog.InfoContext(context.GetContext(), "downloaded source",
		"uri", msg.URI(), "file", filepath.Base(tempFile.Name()), "bytes", written)
	c.Succeed(context)
	context.Add(c.GetOutputParam(), tempFile.Name())
	context.Add(cor.CtxOut, tempFile.Name())
}
