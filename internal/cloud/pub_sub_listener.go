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
// This file defines the Pub/Sub listener that turns bucket notifications into
// edit runs. Each message is handed to a cor.Command; the message is
// acknowledged only when the command finishes without errors.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-video-editor/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener connects a subscription to the command that processes its messages.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener creates a listener for subscriptionID. The command may be
// nil and attached later with SetCommand.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)
	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
	}
	return cmd, nil
}

// SetCommand attaches a command unless one is already set.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts receiving messages in a background goroutine until ctx is canceled.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-message")
			defer span.End()
			attempt := 1
			if msg.DeliveryAttempt != nil {
				attempt = *msg.DeliveryAttempt
			}
			span.SetAttributes(
				attribute.String("messaging.message.id", msg.ID),
				attribute.String("gcs.bucket", msg.Attributes["bucketId"]),
				attribute.String("gcs.object", msg.Attributes["objectId"]),
				attribute.Int("messaging.delivery_attempt", attempt))
			slog.InfoContext(spanCtx, "received notification",
				"id", msg.ID,
				"event", msg.Attributes["eventType"],
				"object", msg.Attributes["objectId"],
				"attempt", attempt)

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))
			defer chainCtx.Close()

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
				return
			}
			span.SetStatus(codes.Error, "failed")
			for name, e := range chainCtx.GetErrors() {
				slog.ErrorContext(spanCtx, "error executing chain", "command", name, "error", e, "attempt", attempt)
			}
			// Redelivery and dead lettering follow the subscription's policy.
			msg.Nack()
		})

		if err != nil {
			slog.Error("error receiving data", "error", err)
		}
	}()
}
