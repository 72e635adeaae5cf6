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

package cloud

import (
	"fmt"
	"path"
	"strings"
)

// GetGCSObjectName is the chain context key holding the *GCSObject being edited.
func GetGCSObjectName() string {
	return "__GCS__OBJ__"
}

// GCSPubSubNotification maps the JSON payload of a Cloud Storage object notification.
type GCSPubSubNotification struct {
	Kind        string                 `json:"kind"`
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Bucket      string                 `json:"bucket"`
	Generation  string                 `json:"generation"`
	ContentType string                 `json:"contentType"`
	TimeCreated string                 `json:"timeCreated"`
	Updated     string                 `json:"updated"`
	Size        string                 `json:"size"`
	MD5Hash     string                 `json:"md5Hash"`
	MediaLink   string                 `json:"mediaLink"`
	MetaData    map[string]interface{} `json:"metadata"`
}

// GCSObject is the lightweight object reference passed between commands.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// URI returns the gs:// form of the object.
func (o *GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// ParseGCSURI splits gs://bucket/name into a GCSObject.
func ParseGCSURI(uri string) (*GCSObject, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return nil, fmt.Errorf("not a gs:// uri: %s", uri)
	}
	bucket, name, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || name == "" {
		return nil, fmt.Errorf("gs:// uri needs a bucket and an object name: %s", uri)
	}
	return &GCSObject{Bucket: bucket, Name: name}, nil
}

// EditedObjectName is the output object name for an input object, following
// the enhanced_<stem>.<format> convention of local runs.
func EditedObjectName(inputName string, format string) string {
	dir, file := path.Split(inputName)
	stem := strings.TrimSuffix(file, path.Ext(file))
	return dir + "enhanced_" + stem + "." + format
}
