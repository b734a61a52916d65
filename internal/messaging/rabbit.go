// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// rabbitTopic is a confirm-mode channel bound to one exchange. Publishes on
// it are serialized so each one can wait for its own confirmation.
type rabbitTopic struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	confirms chan amqp.Confirmation
}

// RabbitClient publishes every topic to an exchange of the same name.
type RabbitClient struct {
	conn         *amqp.Connection
	exchangeType string
	handles      *Handles[*rabbitTopic]
	log          zerolog.Logger
}

func NewRabbitClient(url, exchangeType string, log zerolog.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	if exchangeType == "" {
		exchangeType = amqp.ExchangeFanout
	}

	r := &RabbitClient{
		conn:         conn,
		exchangeType: exchangeType,
		log:          log.With().Str("transport", "amqp").Logger(),
	}
	r.handles = NewHandles("amqp", r.openTopic)
	return r, nil
}

func (r *RabbitClient) Name() string { return "amqp" }

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

func (r *RabbitClient) declareExchange(ch *amqp.Channel, topic string) error {
	return ch.ExchangeDeclare(
		topic,
		r.exchangeType,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

// openTopic gives up when ctx ends. A channel that finishes opening after
// that is closed in the background.
func (r *RabbitClient) openTopic(ctx context.Context, topic string) (*rabbitTopic, error) {
	type result struct {
		t   *rabbitTopic
		err error
	}
	done := make(chan result, 1)
	go func() {
		t, err := r.declareTopic(topic)
		done <- result{t, err}
	}()

	select {
	case res := <-done:
		return res.t, res.err
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				_ = res.t.ch.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (r *RabbitClient) declareTopic(topic string) (*rabbitTopic, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := r.declareExchange(ch, topic); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	r.log.Info().Str("topic", topic).Msg("publisher channel opened")
	return &rabbitTopic{
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

// Publish sends body to the topic exchange and waits for the broker confirm.
func (r *RabbitClient) Publish(ctx context.Context, topic string, body []byte, attrs map[string]string) (string, error) {
	t, err := r.handles.Get(ctx, topic)
	if err != nil {
		return "", &PublishError{Topic: topic, Err: err}
	}

	id := uuid.NewString()
	headers := make(amqp.Table, len(attrs))
	for k, v := range attrs {
		headers[k] = v
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	err = t.ch.Publish(
		topic, // exchange
		"",    // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    id,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		r.evict(topic, t)
		return "", &PublishError{Topic: topic, Err: err}
	}

	select {
	case c, ok := <-t.confirms:
		if !ok {
			r.evict(topic, t)
			return "", &PublishError{Topic: topic, Err: errors.New("channel closed before confirm")}
		}
		if !c.Ack {
			return "", &PublishError{Topic: topic, Err: errors.New("message nacked by broker")}
		}
		return id, nil
	case <-ctx.Done():
		// the pending confirm would be read by the next publish
		r.evict(topic, t)
		return "", &PublishError{Topic: topic, Err: ctx.Err()}
	}
}

func (r *RabbitClient) evict(topic string, t *rabbitTopic) {
	_ = r.handles.Evict(topic, t, func(t *rabbitTopic) error { return t.ch.Close() })
}

// Subscribe binds an exclusive, auto-deleted queue to the topic exchange.
func (r *RabbitClient) Subscribe(ctx context.Context, topic string) (<-chan Delivery, func(), error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := r.declareExchange(ch, topic); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "#", topic, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume: %w", err)
	}

	out := make(chan Delivery, 64)
	subCtx, subCancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				d := Delivery{
					ID:         msg.MessageId,
					Topic:      topic,
					Attributes: tableToAttributes(msg.Headers),
					Data:       msg.Body,
					Timestamp:  msg.Timestamp,
				}
				select {
				case out <- d:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			subCancel()
			_ = ch.Close()
		})
	}
	return out, cancel, nil
}

func (r *RabbitClient) Ping(context.Context) error {
	if r.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

// Close closes every publisher channel and then the connection.
func (r *RabbitClient) Close() error {
	err := r.handles.Close(func(_ string, t *rabbitTopic) error {
		return t.ch.Close()
	})
	if cerr := r.conn.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func tableToAttributes(t amqp.Table) map[string]string {
	if len(t) == 0 {
		return nil
	}
	out := make(map[string]string, len(t))
	for k, v := range t {
		out[k] = fmt.Sprint(v)
	}
	return out
}
