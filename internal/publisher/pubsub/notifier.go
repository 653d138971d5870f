// Package pubsub announces uploaded result objects on a Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
)

// Attribute names and values of a Cloud Storage object notification.
const (
	AttrBucketID      = "bucketId"
	AttrObjectID      = "objectId"
	AttrEventType     = "eventType"
	AttrPayloadFormat = "payloadFormat"

	EventObjectFinalize = "OBJECT_FINALIZE"
	PayloadJSONAPIV1    = "JSON_API_V1"
)

type objectPayload struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// Notifier publishes a message shaped like a Cloud Storage OBJECT_FINALIZE
// notification so the loader treats both sources alike.
type Notifier struct {
	topic *pubsub.Topic
}

// New wraps topic.
func New(topic *pubsub.Topic) *Notifier {
	return &Notifier{topic: topic}
}

// NotifyObject publishes loc and waits for the server-assigned message id.
func (n *Notifier) NotifyObject(ctx context.Context, loc crawler.Location) (string, error) {
	if n.topic == nil {
		return "", fmt.Errorf("pubsub topic is not configured")
	}
	if loc.Bucket == "" || loc.Object == "" {
		return "", fmt.Errorf("location %q has no bucket object", loc.URI)
	}
	data, err := json.Marshal(objectPayload{Bucket: loc.Bucket, Name: loc.Object})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	result := n.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrBucketID:      loc.Bucket,
			AttrObjectID:      loc.Object,
			AttrEventType:     EventObjectFinalize,
			AttrPayloadFormat: PayloadJSONAPIV1,
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages and releases the topic's goroutines.
func (n *Notifier) Stop() {
	if n.topic != nil {
		n.topic.Stop()
	}
}
