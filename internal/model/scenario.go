// internal/model/scenario.go
package model

// Columns run from MinColumn to MaxColumn inclusive.
const (
	MinColumn = 1
	MaxColumn = 30
)

type Scenario struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Messages    []ScenarioMessage `json:"messages"`
}

// ScenarioMessage places one publish payload in a playback column.
type ScenarioMessage struct {
	ID      string         `json:"id"`
	Column  int            `json:"column"`
	Payload PublishRequest `json:"payload"`
}

// MessageSample is a saved publish request, shared by all users.
type MessageSample struct {
	MessageID string `json:"messageId"`
	PublishRequest
}
