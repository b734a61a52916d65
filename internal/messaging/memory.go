package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryTopic is the per-topic handle of the in-process transport.
type memoryTopic struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Delivery
	closed bool
}

func (t *memoryTopic) deliver(d Delivery) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- d:
		default:
			// a full subscriber drops the message instead of stalling publishers
		}
	}
}

func (t *memoryTopic) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
	t.closed = true
	return nil
}

// MemoryPubSub is a process-local transport used for development and tests.
// It keeps every accepted message so tests can inspect what was sent.
type MemoryPubSub struct {
	handles *Handles[*memoryTopic]

	mu        sync.RWMutex
	published []Delivery
	failures  map[string]error
}

func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{
		handles: NewHandles("memory", func(_ context.Context, _ string) (*memoryTopic, error) {
			return &memoryTopic{subs: make(map[int]chan Delivery)}, nil
		}),
		failures: make(map[string]error),
	}
}

func (m *MemoryPubSub) Name() string { return "memory" }

// FailTopic makes every publish to topic fail with err. A nil err clears it.
func (m *MemoryPubSub) FailTopic(topic string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, topic)
		return
	}
	m.failures[topic] = err
}

func (m *MemoryPubSub) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &PublishError{Topic: topic, Err: err}
	}
	t, err := m.handles.Get(ctx, topic)
	if err != nil {
		return "", &PublishError{Topic: topic, Err: err}
	}

	m.mu.Lock()
	if err, ok := m.failures[topic]; ok {
		m.mu.Unlock()
		return "", &PublishError{Topic: topic, Err: err}
	}
	d := Delivery{
		ID:         uuid.NewString(),
		Topic:      topic,
		Attributes: copyAttributes(attrs),
		Data:       append([]byte(nil), data...),
		Timestamp:  time.Now().UTC(),
	}
	m.published = append(m.published, d)
	m.mu.Unlock()

	t.deliver(d)
	return d.ID, nil
}

// Published returns a copy of every message accepted so far.
func (m *MemoryPubSub) Published() []Delivery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Delivery(nil), m.published...)
}

// OpenTopics lists the topics with a cached handle.
func (m *MemoryPubSub) OpenTopics() []string {
	return m.handles.Names()
}

func (m *MemoryPubSub) Subscribe(ctx context.Context, topic string) (<-chan Delivery, func(), error) {
	t, err := m.handles.Get(ctx, topic)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan Delivery, 64)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		close(ch)
		return ch, func() {}, nil
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func (m *MemoryPubSub) Ping(context.Context) error { return nil }

func (m *MemoryPubSub) Close() error {
	return m.handles.Close(func(_ string, t *memoryTopic) error {
		return t.close()
	})
}

func copyAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
