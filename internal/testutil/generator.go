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
package test

import (
	"context"
	"sync"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"google.golang.org/genai"
)

// FakeGenerator answers every request with Reply, or fails with Err for the
// first Failures calls (every call when Failures is negative).
type FakeGenerator struct {
	Reply    string
	Err      error
	Failures int

	mu       sync.Mutex
	calls    int
	requests [][]*genai.Content
}

var _ cloud.ContentGenerator = (*FakeGenerator)(nil)

func (f *FakeGenerator) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, content)
	call := f.calls
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil && (f.Failures < 0 || call <= f.Failures) {
		return nil, f.Err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.Reply}}}},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 100, CandidatesTokenCount: 20},
	}, nil
}

// Calls is the number of requests received.
func (f *FakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastPrompt returns the text parts of the most recent request.
func (f *FakeGenerator) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	out := ""
	for _, c := range f.requests[len(f.requests)-1] {
		for _, p := range c.Parts {
			out += p.Text
		}
	}
	return out
}
