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

// Package test provides shared fixtures for the test suites. Fakes stand in
// for the model and for ffmpeg, so pipeline tests run without any media
// tooling or cloud access.
package test

import (
	"testing"
)

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestUploadMessageText returns the Cloud Storage notification sent when a
// video lands in the input bucket.
func GetTestUploadMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "video_editor_input/uploads/test-clip-001.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/video_editor_input/o/uploads%2Ftest-clip-001.mp4",
  "name": "uploads/test-clip-001.mp4",
  "bucket": "video_editor_input",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:04:08.672Z",
  "size": "2593480",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "mediaLink": "https://storage.googleapis.com/download/storage/v1/b/video_editor_input/o/uploads%2Ftest-clip-001.mp4?generation=1728615848664286&alt=media",
  "metadata": { "touch": "18" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}
`
}
