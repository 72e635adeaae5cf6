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

// Package cloud provides components for interacting with Google Cloud services.
// This file contains the hierarchical configuration loader and the retrying
// wrapper used for every call to the Generative AI API.
//
// Functions:
//   - LoadConfig: Reads a base configuration file and then overwrites values with
//     an environment-specific file (e.g., .env.local.toml, .env.test.toml).
//   - GenerateMultiModalResponse: Calls the model with bounded retries, exponential
//     backoff and token usage metrics.
//   - NewTextPart, NewFileData: Factory functions for genai parts.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
	MaxRetries          = 3                   // Default number of retries after the first failed attempt.
)

// ContentGenerator is the subset of a generative model used by the analysis step.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error)
}

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime specific configuration file names
// derived from GCP_CONFIG_PREFIX and GCP_RUNTIME.
func ConfigFiles() (base string, env string) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}
	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}
	base = configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	env = configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	return base, env
}

// LoadConfig provides a hierarchical configuration loading mechanism. It first loads a
// base configuration file and then overwrites its values with an environment-specific
// configuration file. Missing files are skipped; malformed files are an error.
//
// Inputs:
//   - baseConfig: A pointer to the target configuration struct.
//
// Outputs:
//   - error: The first decode failure, if any.
func LoadConfig(baseConfig interface{}) error {
	baseConfigFileName, envConfigFileName := ConfigFiles()
	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Debug("loaded configuration file", "file", name)
	}
	return nil
}

// GenerateMultiModalResponse executes a multi-modal request against a generative model.
// Failed attempts are retried up to retry.MaxRetries times with exponential backoff,
// each attempt bounded by retry.RequestTimeout. Cancellation of ctx ends the loop.
//
// Inputs:
//   - ctx: The context for the request, which controls cancellation and tracing.
//   - inputTokenCounter: An OpenTelemetry counter for prompt tokens used.
//   - outputTokenCounter: An OpenTelemetry counter for response tokens generated.
//   - retryCounter: An OpenTelemetry counter for tracking the number of retries.
//   - retry: The retry policy.
//   - model: The generator to call.
//   - content: The prompt.
//
// Outputs:
//   - string: The concatenated text content from the model's response, code fences removed.
//   - error: The last error once all attempts are exhausted.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	retry Retry,
	model ContentGenerator,
	content []*genai.Content) (value string, err error) {

	backoff := retry.InitialBackoff
	var resp *genai.GenerateContentResponse
	for attempt := 0; ; attempt++ {
		resp, err = generateOnce(ctx, retry.RequestTimeout, model, content)
		if err == nil {
			break
		}
		if attempt >= retry.MaxRetries || ctx.Err() != nil {
			return "", fmt.Errorf("generation failed after %d attempts: %w", attempt+1, err)
		}
		retryCounter.Add(ctx, 1)
		slog.Warn("generation failed, retrying", "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if retry.MaxBackoff > 0 && backoff > retry.MaxBackoff {
			backoff = retry.MaxBackoff
		}
	}

	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				sb.WriteString(part.Text)
			}
		}
	}
	return TrimCodeFence(sb.String()), nil
}

func generateOnce(ctx context.Context, timeout time.Duration, model ContentGenerator, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("empty response from model")
	}
	return resp, nil
}

// TrimCodeFence strips a surrounding markdown code fence from a model response.
func TrimCodeFence(in string) string {
	out := strings.TrimSpace(in)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// NewTextPart creates a text part.
func NewTextPart(in string) *genai.Part {
	return &genai.Part{Text: in}
}

// NewFileData creates a file data part referencing a GCS object.
//
// Inputs:
//   - in: The URI of the file (e.g., a GCS path).
//   - mimeType: The MIME type of the file (e.g., "video/mp4").
func NewFileData(in string, mimeType string) *genai.Part {
	return &genai.Part{FileData: &genai.FileData{FileURI: in, MIMEType: mimeType}}
}
