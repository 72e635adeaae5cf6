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
// This file initialises and holds every client the editor needs. A single
// ServiceClients value is created at startup and passed to the workflows,
// listeners and API handlers.
//
// Logic Flow:
//  1. NewCloudServiceClients is called at application startup with the loaded Config.
//  2. Clients for Storage, Pub/Sub, GenAI, BigQuery and IAM credentials are created.
//  3. Pub/Sub listeners and rate limited agent models are built from the config maps.
//  4. Everything is bundled into ServiceClients.
package cloud

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients is the central container for external service connections.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BiqQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient // Signs GCS URLs for the stream endpoint.
	PubSubListeners map[string]*PubSubListener        // Keyed by the logical name from the config.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
}

// Close shuts down the client connections. The genai client holds no
// connection of its own.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BiqQueryClient != nil {
		_ = c.BiqQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// AgentModel returns the named rate limited model.
func (c *ServiceClients) AgentModel(name string) (*QuotaAwareGenerativeAIModel, error) {
	m, ok := c.AgentModels[name]
	if !ok {
		return nil, fmt.Errorf("agent model %q is not configured", name)
	}
	return m, nil
}

// NewGenAIModels creates the genai client and one rate limited model per
// configured agent. When no agent is configured the default analysis model is
// registered under DefaultAgentModelKey. The CLI uses this without the rest of
// the cloud clients.
func NewGenAIModels(ctx context.Context, config *Config) (*genai.Client, map[string]*QuotaAwareGenerativeAIModel, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating genai client: %w", err)
	}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		slog.Debug("configuring agent model", "key", amKey, "model", values.Model)
		agentModels[amKey] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, gc.Models, values.RateLimit)
	}
	if _, ok := agentModels[DefaultAgentModelKey]; !ok {
		values := config.AgentModel(DefaultAgentModelKey)
		agentModels[DefaultAgentModelKey] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, gc.Models, values.RateLimit)
	}
	return gc, agentModels, nil
}

// NewCloudServiceClients initialises all Google Cloud clients based on the
// provided configuration.
//
// Inputs:
//   - ctx: The root context.Context for the application.
//   - config: The loaded application configuration.
//
// Outputs:
//   - *ServiceClients: The initialised clients.
//   - error: An error if any of the clients fail to initialise.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	slog.Info("creating genai client", "project", config.Application.GoogleProjectId, "location", config.Application.GoogleLocation)
	gc, agentModels, err := NewGenAIModels(ctx, config)
	if err != nil {
		return nil, err
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	ic, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, err
	}

	// Listeners are created without a command; workflows attach theirs later.
	subscriptions := make(map[string]*PubSubListener)
	for subKey, values := range config.TopicSubscriptions {
		actual, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = actual
	}

	cloud = &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BiqQueryClient:  bc,
		IAMClient:       ic,
		PubSubListeners: subscriptions,
		AgentModels:     agentModels,
	}
	return cloud, nil
}
