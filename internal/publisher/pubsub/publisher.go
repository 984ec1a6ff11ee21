// Package pubsub publishes summary lifecycle events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

// Publisher sends one JSON message per event. Attributes repeat the id and
// status so subscriptions can filter without decoding the body, and carry
// the W3C trace context of the summarization span.
type Publisher struct {
	topic *pubsub.Topic
}

// New creates a Publisher for the provided topic.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Connect opens a client for projectID and returns a Publisher bound to
// topicID. The caller owns the returned client.
func Connect(ctx context.Context, projectID, topicID string) (*Publisher, *pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return New(client.Topic(topicID)), client, nil
}

// Publish blocks until the server acknowledges the message and returns its id.
func (p *Publisher) Publish(ctx context.Context, event summary.Event) (string, error) {
	if p.topic == nil {
		return "", errors.New("pubsub: topic is not configured")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode event %d: %w", event.SummaryID, err)
	}

	attrs := propagation.MapCarrier{
		"summary_id": strconv.FormatInt(event.SummaryID, 10),
		"status":     string(event.Status),
	}
	otel.GetTextMapPropagator().Inject(ctx, attrs)

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event %d: %w", event.SummaryID, err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
