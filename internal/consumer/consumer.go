// internal/consumer/consumer.go
package consumer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"reggie/internal/messaging"
)

type MessageHandlerFunc func(delivery messaging.Delivery)

// Consumer holds control channels and metadata for a running topic consumer.
type Consumer struct {
	Topic    string
	StopChan chan struct{}
	DoneChan chan struct{}
	Handler  MessageHandlerFunc

	cancel   func()
	stopOnce sync.Once
	log      zerolog.Logger
}

// StartConsumer subscribes to topic and feeds every delivery to handler on
// its own goroutine until Stop is called or the subscription ends.
func StartConsumer(ctx context.Context, sub messaging.Subscriber, topic string, handler MessageHandlerFunc, log zerolog.Logger) (*Consumer, error) {
	msgs, cancel, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("topic %s: failed to subscribe: %w", topic, err)
	}

	c := &Consumer{
		Topic:    topic,
		StopChan: make(chan struct{}),
		DoneChan: make(chan struct{}),
		Handler:  handler,
		cancel:   cancel,
		log:      log.With().Str("topic", topic).Logger(),
	}

	go c.consumeLoop(msgs)

	c.log.Info().Msg("started consumer")
	return c, nil
}

// consumeLoop processes messages until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan messaging.Delivery) {
	defer close(c.DoneChan)

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.log.Info().Msg("delivery channel closed")
				return
			}
			c.Handler(msg)

		case <-c.StopChan:
			c.log.Info().Msg("stopping consumer")
			return
		}
	}
}

// Done is closed once the consume loop has exited.
func (c *Consumer) Done() <-chan struct{} {
	return c.DoneChan
}

// Stop signals the consumer to stop and waits for cleanup
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.StopChan) })
	<-c.DoneChan
	c.cancel()
	c.log.Info().Msg("stopped consumer")
}
