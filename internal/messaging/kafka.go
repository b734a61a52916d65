package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageIDHeader carries the Reggie message id on Kafka records.
const MessageIDHeader = "message_id"

// KafkaClient keeps one synchronous writer per topic.
type KafkaClient struct {
	brokers []string
	handles *Handles[*kafka.Writer]
	log     zerolog.Logger
}

func NewKafkaClient(brokers []string, log zerolog.Logger) (*KafkaClient, error) {
	var list []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			list = append(list, b)
		}
	}
	if len(list) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}

	k := &KafkaClient{
		brokers: list,
		log:     log.With().Str("transport", "kafka").Logger(),
	}
	k.handles = NewHandles("kafka", k.openWriter)
	return k, nil
}

func (k *KafkaClient) Name() string { return "kafka" }

func (k *KafkaClient) openWriter(ctx context.Context, topic string) (*kafka.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.log.Info().Str("topic", topic).Msg("publisher writer opened")
	return &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, nil
}

// Publish writes one record keyed by its message id and waits for all
// in-sync replicas to acknowledge it.
func (k *KafkaClient) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	w, err := k.handles.Get(ctx, topic)
	if err != nil {
		return "", &PublishError{Topic: topic, Err: err}
	}

	id := uuid.NewString()
	msg := kafkaMessage(id, data, attrs)
	if err := w.WriteMessages(ctx, msg); err != nil {
		return "", &PublishError{Topic: topic, Err: err}
	}
	return id, nil
}

// Subscribe reads the topic from its latest offset with a throwaway group.
func (k *KafkaClient) Subscribe(ctx context.Context, topic string) (<-chan Delivery, func(), error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       topic,
		GroupID:     "reggie-tail-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	out := make(chan Delivery, 64)
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					k.log.Error().Err(err).Str("topic", topic).Msg("read failed")
				}
				return
			}
			select {
			case out <- kafkaDelivery(topic, msg):
			case <-subCtx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

// kafkaMessage builds the record for one publish. The id is both the key and
// the MessageIDHeader value.
func kafkaMessage(id string, data []byte, attrs map[string]string) kafka.Message {
	headers := make([]kafka.Header, 0, len(attrs)+1)
	headers = append(headers, kafka.Header{Key: MessageIDHeader, Value: []byte(id)})
	for key, v := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}
	return kafka.Message{
		Key:     []byte(id),
		Value:   data,
		Headers: headers,
		Time:    time.Now().UTC(),
	}
}

// kafkaDelivery maps a record back to a Delivery. Records written by other
// producers have no MessageIDHeader, so the key stands in for the id.
func kafkaDelivery(topic string, msg kafka.Message) Delivery {
	id := string(msg.Key)
	var attrs map[string]string
	for _, h := range msg.Headers {
		if h.Key == MessageIDHeader {
			id = string(h.Value)
			continue
		}
		if attrs == nil {
			attrs = make(map[string]string, len(msg.Headers))
		}
		attrs[h.Key] = string(h.Value)
	}
	return Delivery{ID: id, Topic: topic, Attributes: attrs, Data: msg.Value, Timestamp: msg.Time}
}

// Ping dials the first broker.
func (k *KafkaClient) Ping(ctx context.Context) error {
	dialer := kafka.Dialer{Timeout: 2 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", k.brokers[0])
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	return conn.Close()
}

func (k *KafkaClient) Close() error {
	return k.handles.Close(func(_ string, w *kafka.Writer) error {
		return w.Close()
	})
}
