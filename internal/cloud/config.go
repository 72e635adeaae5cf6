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

// Package cloud defines the application configuration, loaded from TOML files,
// and the wrappers around the Google Cloud clients used by the video editor.
//
// Structs:
//   - BigQueryDataSource: Dataset and table holding edit run records.
//   - PromptTemplates: Text templates for prompts sent to the analysis model.
//   - VertexAiLLMModel: Configuration for a Vertex AI Large Language Model (LLM).
//   - TopicSubscription: Configuration for a single Pub/Sub topic subscription.
//   - Storage: Input and output buckets.
//   - Media: Local media tooling, work directory and encoder settings.
//   - Retry: Timeout and backoff policy for the analysis call.
//   - Config: The top-level struct that aggregates all other configuration structs.
package cloud

import (
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings leaves every harm category unblocked. Source videos are
// supplied by the operator, so the analysis call must not refuse them.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Defaults applied by NewConfig before any TOML file is decoded.
const (
	DefaultModelName            = "gemini-1.5-flash"
	DefaultTemperature          = 0.7
	DefaultOutputFormat         = "mp4"
	DefaultMaxFrames            = 5000
	DefaultFrameIntervalSeconds = 1.0
	DefaultVideoCodec           = "libx264"
	DefaultCRF                  = 23
	DefaultPreset               = "medium"
	DefaultAgentModelKey        = "analysis-flash"
)

// BigQueryDataSource represents the configuration for a BigQuery data source.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`    // The name of the BigQuery dataset.
	RunsTable   string `toml:"runs_table"` // The table receiving one row per edit run.
}

// PromptTemplates holds the templates for different types of prompts.
type PromptTemplates struct {
	AnalysisPrompt string `toml:"analysis"` // Asks the model for the edit windows of a video.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired response MIME type.
	RateLimit          int     `toml:"rate_limit"`          // Burst of requests allowed, refilled one per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	InputBucket  string `toml:"input_bucket"`  // Raw uploads; also the location handed to Gemini.
	OutputBucket string `toml:"output_bucket"` // Finished edits.
}

// Media holds the local tooling and encoder settings.
type Media struct {
	FFmpegPath           string  `toml:"ffmpeg"`
	FFprobePath          string  `toml:"ffprobe"`
	WorkDir              string  `toml:"work_dir"`    // Parent of the per-run scratch directories. Empty means os.TempDir().
	OutputDir            string  `toml:"output_dir"`  // Default location of finished files.
	OutputFormat         string  `toml:"output_format"`
	KeepWorkDir          bool    `toml:"keep_work_dir"`
	VideoCodec           string  `toml:"video_codec"`
	CRF                  int     `toml:"crf"`
	Preset               string  `toml:"preset"`
	MaxFrames            int     `toml:"max_frames"` // Upper bound on frames extracted for a single segment.
	FrameIntervalSeconds float64 `toml:"frame_interval_seconds"`
	FontScale            int     `toml:"font_scale"`
}

// Retry configures the single network call of an edit run.
type Retry struct {
	MaxRetries     int           `toml:"max_retries"`
	InitialBackoff time.Duration `toml:"initial_backoff"`
	MaxBackoff     time.Duration `toml:"max_backoff"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"` // Segment workers per run.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
		LogFile                   string `toml:"log_file"`
		HistoryDB                 string `toml:"history_db"` // SQLite file recording CLI runs. Empty disables it.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
	Media              Media                        `toml:"media"`
	Retry              Retry                        `toml:"retry"`
}

// NewConfig creates a Config with initialised maps and the defaults of the
// video processing pipeline. TOML values decoded later override these.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		Media: Media{
			FFmpegPath:           "ffmpeg",
			FFprobePath:          "ffprobe",
			OutputDir:            "output",
			OutputFormat:         DefaultOutputFormat,
			VideoCodec:           DefaultVideoCodec,
			CRF:                  DefaultCRF,
			Preset:               DefaultPreset,
			MaxFrames:            DefaultMaxFrames,
			FrameIntervalSeconds: DefaultFrameIntervalSeconds,
			FontScale:            3,
		},
		Retry: Retry{
			MaxRetries:     MaxRetries,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     30 * time.Second,
			RequestTimeout: 5 * time.Minute,
		},
	}
	c.Application.Name = "video-editor"
	c.Application.ThreadPoolSize = 4
	c.PromptTemplates.AnalysisPrompt = DefaultAnalysisPrompt
	return c
}

// AgentModel returns the named model configuration, falling back to the
// default analysis model when the name is not configured.
func (c *Config) AgentModel(name string) VertexAiLLMModel {
	if m, ok := c.AgentModels[name]; ok {
		return m
	}
	return VertexAiLLMModel{
		Model:        DefaultModelName,
		Temperature:  DefaultTemperature,
		TopP:         0.95,
		TopK:         40,
		MaxTokens:    8192,
		OutputFormat: "application/json",
		RateLimit:    5,
	}
}

// DefaultAnalysisPrompt is used when no template is configured.
const DefaultAnalysisPrompt = `Analyze this video ({{ .DURATION }} seconds long) and identify the time ranges that would benefit from editing.
Sampling hint: {{ .SAMPLING_HINTS }}
Allowed edit types: {{ .ENHANCEMENT_TYPES }}

Return JSON only, in this shape:
{{ .EXAMPLE_JSON }}

Rules:
- times are seconds from the start of the video
- "type" is one of the allowed edit types
- text overlays carry "text" and "position" (top, center or bottom)
- effects carry "effect" (blur, brightness, contrast, zoom, highlight) and "intensity"
- transitions carry "transition" (fade, crossfade, wipe) and "duration"
`
