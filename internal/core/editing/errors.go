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

package editing

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidDuration     = errors.New("InvalidDuration")
	ErrEmptyPlan           = errors.New("EmptyPlan")
	ErrExtraction          = errors.New("ExtractionError")
	ErrUnsupportedEditKind = errors.New("UnsupportedEditKind")
	ErrReconstruction      = errors.New("ReconstructionError")
	ErrAnalysis            = errors.New("AnalysisError")
)

var kinds = []error{
	ErrInvalidDuration,
	ErrEmptyPlan,
	ErrExtraction,
	ErrUnsupportedEditKind,
	ErrReconstruction,
	ErrAnalysis,
}

// Error is a pipeline failure with the segment and timestamp it concerns.
// Segment is -1 and Timestamp NaN when they do not apply.
type Error struct {
	Kind      error
	Segment   int
	Timestamp float64
	Err       error
}

// NewError creates an Error not tied to a segment.
func NewError(kind error, err error) *Error {
	return &Error{Kind: kind, Segment: -1, Timestamp: math.NaN(), Err: err}
}

// SegmentError creates an Error for a segment, optionally at a timestamp.
func SegmentError(kind error, segment int, timestamp float64, err error) *Error {
	return &Error{Kind: kind, Segment: segment, Timestamp: timestamp, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Segment >= 0 {
		msg += fmt.Sprintf(" in segment %d", e.Segment)
	}
	if !math.IsNaN(e.Timestamp) {
		msg += fmt.Sprintf(" at %.3fs", e.Timestamp)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// KindOf returns the kind name of err, "Canceled" for context cancellation
// and "Unknown" otherwise.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	if isCanceled(err) {
		return "Canceled"
	}
	return "Unknown"
}

// Details returns the segment index and timestamp carried by err, if any.
func Details(err error) (segment int, timestamp float64, ok bool) {
	var e *Error
	if !errors.As(err, &e) {
		return -1, math.NaN(), false
	}
	return e.Segment, e.Timestamp, true
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
