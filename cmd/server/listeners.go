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

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/workflow"
	"github.com/jaycherian/gcp-go-video-editor/internal/media"
)

// InputTopic is the topic_subscriptions key of the input bucket notifications.
const InputTopic = "InputTopic"

// SetupListeners attaches the edit pipeline to the input subscription and
// starts receiving.
func SetupListeners(ctx context.Context, config *cloud.Config, cloudClients *cloud.ServiceClients, processor media.Processor) error {
	listener, ok := cloudClients.PubSubListeners[InputTopic]
	if !ok {
		return fmt.Errorf("topic_subscriptions.%s is not configured", InputTopic)
	}

	pipeline, err := workflow.NewVideoEditPipeline(config, cloudClients, processor, cloud.DefaultAgentModelKey)
	if err != nil {
		return err
	}
	listener.SetCommand(pipeline)
	listener.Listen(ctx)
	return nil
}
