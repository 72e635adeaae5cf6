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
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/services"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
)

// StateManager holds the dependencies shared by handlers and listeners.
type StateManager struct {
	config      *cloud.Config
	cloud       *cloud.ServiceClients
	processor   *media.FFmpeg
	editService *services.EditService
}

var state = &StateManager{}

// SetupOS points the configuration loader at ./configs. An existing
// GCP_RUNTIME is respected, otherwise "local" is used.
func SetupOS() error {
	if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
		return err
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads the configuration once.
func GetConfig() (*cloud.Config, error) {
	if state.config != nil {
		return state.config, nil
	}
	if err := SetupOS(); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	state.config = config
	return config, nil
}

// InitState creates the cloud clients, the ffmpeg processor and the edit
// service, then starts the Pub/Sub listeners.
func InitState(ctx context.Context) error {
	config, err := GetConfig()
	if err != nil {
		return err
	}

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return fmt.Errorf("create cloud clients: %w", err)
	}
	state.cloud = cloudClients

	processor, err := media.NewFFmpeg(media.Options{
		FFmpegPath:  config.Media.FFmpegPath,
		FFprobePath: config.Media.FFprobePath,
		VideoCodec:  config.Media.VideoCodec,
		CRF:         config.Media.CRF,
		Preset:      config.Media.Preset,
	})
	if err != nil {
		return err
	}
	state.processor = processor

	state.editService = &services.EditService{
		BigqueryClient: cloudClients.BiqQueryClient,
		StorageClient:  cloudClients.StorageClient,
		IAMClient:      cloudClients.IAMClient,
		SignerEmail:    config.Application.SignerServiceAccountEmail,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		RunsTable:      config.BigQueryDataSource.RunsTable,
		InputBucket:    config.Storage.InputBucket,
	}

	return SetupListeners(ctx, config, cloudClients, processor)
}
