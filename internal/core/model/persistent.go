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

package model

import (
	"time"

	"github.com/google/uuid"
)

// Edit run states.
const (
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)

// EditRun is the record of one edit run, persisted to BigQuery.
type EditRun struct {
	RunId                 string          `json:"run_id" bigquery:"run_id"`
	InputPath             string          `json:"input_path" bigquery:"input_path"`
	OutputPath            string          `json:"output_path,omitempty" bigquery:"output_path"`
	Status                string          `json:"status" bigquery:"status"`
	ErrorKind             string          `json:"error_kind,omitempty" bigquery:"error_kind"`
	ErrorDetail           string          `json:"error_detail,omitempty" bigquery:"error_detail"`
	Model                 string          `json:"model,omitempty" bigquery:"model"`
	DurationSeconds       float64         `json:"duration_seconds" bigquery:"duration_seconds"`
	OutputDurationSeconds float64         `json:"output_duration_seconds" bigquery:"output_duration_seconds"`
	Segments              []SegmentRecord `json:"segments" bigquery:"segments"`
	CreateDate            time.Time       `json:"create_date" bigquery:"create_date"`
}

// SegmentRecord is the persisted form of an EditSegment.
type SegmentRecord struct {
	Index      int     `json:"index" bigquery:"index"`
	Start      float64 `json:"start" bigquery:"start"`
	End        float64 `json:"end" bigquery:"end"`
	Kind       string  `json:"kind" bigquery:"kind"`
	Suggestion string  `json:"suggestion,omitempty" bigquery:"suggestion"`
}

// NewEditRun creates a run with a random id.
func NewEditRun(inputPath string) *EditRun {
	return &EditRun{
		RunId:      uuid.NewString(),
		InputPath:  inputPath,
		Segments:   make([]SegmentRecord, 0),
		CreateDate: time.Now(),
	}
}

// SetSegments records the plan of the run.
func (r *EditRun) SetSegments(segments []*EditSegment) {
	r.Segments = make([]SegmentRecord, 0, len(segments))
	for _, s := range segments {
		r.Segments = append(r.Segments, SegmentRecord{
			Index:      s.Index,
			Start:      s.Start,
			End:        s.End,
			Kind:       string(s.Kind),
			Suggestion: s.Suggestion,
		})
	}
}
