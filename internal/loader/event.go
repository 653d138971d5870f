package loader

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObjectEvent marks a payload carrying neither known event shape.
var ErrNotObjectEvent = errors.New("not an object event")

// ObjectRef names one object in a bucket.
type ObjectRef struct {
	Bucket string
	Key    string
}

type objectEvent struct {
	Detail *struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"detail"`
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ParseObjectEvent accepts an EventBridge-style object-created event
// ({"detail":{"bucket":{"name"},"object":{"key"}}}) or a GCS JSON API
// object resource ({"bucket","name"}).
func ParseObjectEvent(data []byte) (ObjectRef, error) {
	var ev objectEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ObjectRef{}, fmt.Errorf("decode object event: %w", err)
	}
	var ref ObjectRef
	switch {
	case ev.Detail != nil:
		ref = ObjectRef{Bucket: ev.Detail.Bucket.Name, Key: ev.Detail.Object.Key}
	default:
		ref = ObjectRef{Bucket: ev.Bucket, Key: ev.Name}
	}
	if ref.Bucket == "" || ref.Key == "" {
		return ObjectRef{}, ErrNotObjectEvent
	}
	return ref, nil
}
