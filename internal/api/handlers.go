package api

import (
	"net/http"

	"reggie/internal/model"
)

// TypeInfo describes one registered message type.
type TypeInfo struct {
	Name   string            `json:"name" example:"OrderCreated"`
	Fields map[string]string `json:"fields"`
}

// @Summary Publish a message
// @Description Decodes the message as the registered className and publishes the normalized JSON to the topic
// @Tags Publish
// @Accept json
// @Produce json
// @Param body body model.PublishRequest true "Publish request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse "Unknown message type or deserialization error"
// @Failure 500 {object} ErrorResponse "Failed to publish"
// @Router /publish [post]
func (a *API) Publish(w http.ResponseWriter, r *http.Request) {
	var req model.PublishRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, a.Log, err)
		return
	}

	res, err := a.Publisher.Publish(r.Context(), req)
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary List registered message types
// @Tags Publish
// @Produce json
// @Success 200 {array} TypeInfo
// @Router /types [get]
func (a *API) ListTypes(w http.ResponseWriter, r *http.Request) {
	names := a.Registry.Names()
	out := make([]TypeInfo, 0, len(names))
	for _, name := range names {
		e, ok := a.Registry.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, TypeInfo{Name: name, Fields: e.Fields()})
	}
	writeJSON(w, http.StatusOK, out)
}
