// Package messaging sends and receives messages on named destinations
// (topics) over one of several broker transports.
package messaging

import (
	"context"
	"fmt"
	"time"
)

// Publisher sends one message and blocks until the transport accepted it.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Subscriber streams the messages published to a topic from now on. The
// returned cancel func releases the subscription and closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan Delivery, func(), error)
}

// Transport is a broker backend.
type Transport interface {
	Publisher
	Subscriber
	Name() string
	Ping(ctx context.Context) error
}

// Delivery is a message received from a topic.
type Delivery struct {
	ID         string            `json:"id"`
	Topic      string            `json:"topic"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Data       []byte            `json:"data"`
	Timestamp  time.Time         `json:"timestamp"`
}

// PublishError wraps any transport failure during publish.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish message to topic %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
