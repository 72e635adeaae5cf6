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
// Package services provides the read side of the editor: run lookups and
// statistics from BigQuery, signed download links for edited videos and
// uploads of new sources into the input bucket.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	"google.golang.org/api/iterator"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("edit run not found")

// UploadPrefix is the folder of the input bucket the notification watches.
const UploadPrefix = "uploads/"

// RunStats aggregates the runs table.
type RunStats struct {
	Total              int64            `bigquery:"total" json:"total"`
	Succeeded          int64            `bigquery:"succeeded" json:"succeeded"`
	Failed             int64            `bigquery:"failed" json:"failed"`
	AvgDurationSeconds float64          `bigquery:"avg_duration_seconds" json:"avg_duration_seconds"`
	Segments           int64            `bigquery:"segments" json:"segments"`
	ErrorKinds         map[string]int64 `bigquery:"-" json:"error_kinds,omitempty"`
}

type errorKindCount struct {
	ErrorKind bigquery.NullString `bigquery:"error_kind"`
	Runs      int64               `bigquery:"runs"`
}

// EditService serves the edit runs recorded by the pipeline.
type EditService struct {
	BigqueryClient *bigquery.Client
	StorageClient  *storage.Client
	IAMClient      *credentials.IamCredentialsClient // Signs URLs on behalf of SignerEmail.
	SignerEmail    string
	DatasetName    string
	RunsTable      string
	InputBucket    string
}

// GetFQN returns the project.dataset.table name of the runs table.
func (s *EditService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.RunsTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

func (s *EditService) query(text string, params ...bigquery.QueryParameter) *bigquery.Query {
	q := s.BigqueryClient.Query(fmt.Sprintf(text, s.GetFQN()))
	q.Parameters = params
	return q
}

// Get returns the run with the given id.
func (s *EditService) Get(ctx context.Context, id string) (*model.EditRun, error) {
	itr, err := s.query(QryFindRunById, bigquery.QueryParameter{Name: "run_id", Value: id}).Read(ctx)
	if err != nil {
		return nil, err
	}
	run := &model.EditRun{}
	err = itr.Next(run)
	if errors.Is(err, iterator.Done) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (s *EditService) List(ctx context.Context, limit int) ([]*model.EditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	itr, err := s.query(QryListRuns, bigquery.QueryParameter{Name: "limit", Value: limit}).Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.EditRun, 0, limit)
	for {
		run := &model.EditRun{}
		err := itr.Next(run)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// Stats summarises all runs, with failures broken down by error kind.
func (s *EditService) Stats(ctx context.Context) (*RunStats, error) {
	itr, err := s.query(QryRunStats).Read(ctx)
	if err != nil {
		return nil, err
	}
	stats := &RunStats{}
	if err := itr.Next(stats); err != nil && !errors.Is(err, iterator.Done) {
		return nil, err
	}

	itr, err = s.query(QryErrorKinds).Read(ctx)
	if err != nil {
		return nil, err
	}
	stats.ErrorKinds = make(map[string]int64)
	for {
		var row errorKindCount
		err := itr.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		kind := row.ErrorKind.StringVal
		if !row.ErrorKind.Valid || kind == "" {
			kind = "Unknown"
		}
		stats.ErrorKinds[kind] += row.Runs
	}
	return stats, nil
}

// GenerateSignedURL creates a V4 GET URL for a gs:// object. With a signer
// email configured the signature comes from the IAM credentials API, which
// works for workload identities that hold no private key.
func (s *EditService) GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error) {
	obj, err := cloud.ParseGCSURI(gcsURI)
	if err != nil {
		return "", err
	}

	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),
	}
	if s.SignerEmail != "" && s.IAMClient != nil {
		opts.GoogleAccessID = s.SignerEmail
		opts.SignBytes = func(payload []byte) ([]byte, error) {
			resp, err := s.IAMClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    "projects/-/serviceAccounts/" + s.SignerEmail,
				Payload: payload,
			})
			if err != nil {
				return nil, err
			}
			return resp.SignedBlob, nil
		}
	}

	u, err := s.StorageClient.Bucket(obj.Bucket).SignedURL(obj.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", obj.Bucket, obj.Name, err)
	}
	return u, nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadObjectName places an uploaded file under UploadPrefix with a unique
// prefix. Directory parts and unusual characters are dropped.
func UploadObjectName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.TrimLeft(base, "._")
	if base == "" {
		base = "video.mp4"
	}
	return UploadPrefix + uuid.NewString() + "-" + base
}

// Upload streams a new source video into the input bucket. The bucket
// notification then starts the edit.
func (s *EditService) Upload(ctx context.Context, filename string, r io.Reader, contentType string) (*cloud.GCSObject, error) {
	if s.InputBucket == "" {
		return nil, errors.New("no input bucket configured")
	}
	obj := &cloud.GCSObject{Bucket: s.InputBucket, Name: UploadObjectName(filename), MIMEType: contentType}

	wc := s.StorageClient.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return nil, fmt.Errorf("write %s: %w", obj.URI(), err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("finalize %s: %w", obj.URI(), err)
	}
	return obj, nil
}
