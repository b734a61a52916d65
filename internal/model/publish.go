// internal/model/publish.go
package model

import "encoding/json"

// PublishRequest asks for Message to be decoded as ClassName and sent to Topic.
type PublishRequest struct {
	ClassName  string            `json:"className"`
	Topic      string            `json:"topic"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Message    json.RawMessage   `json:"message"`
}

// PublishResult is what a successful publish reports back.
type PublishResult struct {
	MessageID string
	Topic     string
	Type      string
	Payload   json.RawMessage
	Fields    map[string]string
}

// MarshalJSON keys the field description by the registered type name, the
// shape the UI renders. The fixed keys win over a colliding type name.
func (r PublishResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4)
	if r.Type != "" {
		fields := r.Fields
		if fields == nil {
			fields = map[string]string{}
		}
		out[r.Type] = fields
	}
	out["messageId"] = r.MessageID
	out["topic"] = r.Topic
	out["payload"] = r.Payload
	return json.Marshal(out)
}
