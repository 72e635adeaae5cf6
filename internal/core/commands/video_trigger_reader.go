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
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
)

// EditedObjectPrefix marks objects written by the editor itself.
const EditedObjectPrefix = "enhanced_"

// VideoTriggerToGCSObject decodes a Cloud Storage notification into a
// *cloud.GCSObject. Notifications for edited outputs and for objects that
// are clearly not videos set ParamSkip instead, so a bucket used for both
// input and output does not loop.
type VideoTriggerToGCSObject struct {
	cor.BaseCommand
}

func NewVideoTriggerToGCSObject(name string) *VideoTriggerToGCSObject {
	return &VideoTriggerToGCSObject{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *VideoTriggerToGCSObject) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}
	if out.Bucket == "" || out.Name == "" {
		c.Fail(context, fmt.Errorf("notification without bucket or object name"))
		return
	}

	if reason := skipReason(&out); reason != "" {
		slog.InfoContext(context.GetContext(), "ignoring notification", "object", out.Name, "reason", reason)
		context.Add(ParamSkip, reason)
		c.Succeed(context)
		return
	}

	msg := &cloud.GCSObject{Bucket: out.Bucket, Name: out.Name, MIMEType: out.ContentType}
	c.Succeed(context)
	context.Add(cloud.GetGCSObjectName(), msg)
	context.Add(c.GetOutputParam(), msg)
}

func skipReason(n *cloud.GCSPubSubNotification) string {
	if strings.HasSuffix(n.Name, "/") {
		return "folder placeholder"
	}
	if strings.HasPrefix(path.Base(n.Name), EditedObjectPrefix) {
		return "edited output"
	}
	if n.ContentType != "" && !strings.HasPrefix(n.ContentType, "video/") && n.ContentType != "application/octet-stream" {
		return "content type " + n.ContentType
	}
	return ""
}
