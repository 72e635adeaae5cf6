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

// This file hands the source video to the analysis model. Gemini reads
// videos from Cloud Storage, so a local source is uploaded to the input
// bucket first. Without a bucket, small files are sent inline instead.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/editing"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"google.golang.org/genai"
)

// MaxInlineVideoBytes is the largest source sent inline with the request.
const MaxInlineVideoBytes = 20 << 20

// VideoUpload produces the *genai.Part referencing the source video.
type VideoUpload struct {
	cor.BaseCommand
	client *storage.Client // nil disables uploads
	bucket string
}

// NewVideoUpload creates the upload step.
//
// Inputs:
//   - name: The command name.
//   - client: The storage client, may be nil.
//   - bucket: The bucket local sources are uploaded to, may be empty.
func NewVideoUpload(name string, client *storage.Client, bucket string) *VideoUpload {
	out := &VideoUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
	out.InputParamName = ParamVideoAsset
	out.OutputParamName = GetVideoUploadFileParameterName()
	return out
}

func (v *VideoUpload) Execute(context cor.Context) {
	asset := context.Get(v.GetInputParam()).(*model.VideoAsset)

	var part *genai.Part
	var err error
	switch {
	case context.Get(cloud.GetGCSObjectName()) != nil:
		// The source came from a bucket notification; point the model at it.
		obj := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
		part = cloud.NewFileData(obj.URI(), asset.MIMEType)
	case v.client != nil && v.bucket != "":
		part, err = v.upload(context, asset)
	default:
		part, err = inlineVideo(asset)
	}
	if err != nil {
		v.Fail(context, editing.NewError(editing.ErrAnalysis, err))
		return
	}

	v.Succeed(context)
	context.Add(v.GetOutputParam(), part)
	context.Add(cor.CtxOut, part)
}

func (v *VideoUpload) upload(context cor.Context, asset *model.VideoAsset) (*genai.Part, error) {
	runID := "adhoc"
	if run, ok := context.Get(ParamEditRun).(*model.EditRun); ok {
		runID = run.RunId
	}
	obj := &cloud.GCSObject{
		Bucket:   v.bucket,
		Name:     fmt.Sprintf("analysis/%s/%s", runID, filepath.Base(asset.Path)),
		MIMEType: asset.MIMEType,
	}

	file, err := os.Open(asset.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	writer := v.client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(context.GetContext())
	writer.ContentType = asset.MIMEType
	written, err := io.Copy(writer, file)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("upload to %s failed after %d bytes: %w", obj.URI(), written, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload to %s: %w", obj.URI(), err)
	}
	slog.InfoContext(context.GetContext(), "uploaded source for analysis", "uri", obj.URI(), "bytes", written)

	context.Add(GetVideoUploadObjectParameterName(), obj)
	return cloud.NewFileData(obj.URI(), obj.MIMEType), nil
}

func inlineVideo(asset *model.VideoAsset) (*genai.Part, error) {
	info, err := os.Stat(asset.Path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxInlineVideoBytes {
		return nil, fmt.Errorf("video of %d bytes is too large to send inline; configure storage.input_bucket", info.Size())
	}
	data, err := os.ReadFile(asset.Path)
	if err != nil {
		return nil, err
	}
	return &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: asset.MIMEType}}, nil
}
