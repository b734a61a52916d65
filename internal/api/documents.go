package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reggie/internal/model"
)

// @Summary List users that own scenarios
// @Tags Scenarios
// @Produce json
// @Success 200 {array} string
// @Failure 500 {object} ErrorResponse
// @Router /users [get]
func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.Documents.ListUserIDs(r.Context())
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// @Summary List a user's scenarios
// @Tags Scenarios
// @Security ApiKeyAuth
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {array} model.Scenario
// @Failure 500 {object} ErrorResponse
// @Router /users/{userId}/scenarios [get]
func (a *API) ListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := a.Documents.ListScenarios(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// @Summary Create or replace a scenario
// @Tags Scenarios
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param userId path string true "User id"
// @Param body body model.Scenario true "Scenario"
// @Success 200 {object} model.Scenario
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{userId}/scenarios [put]
func (a *API) UpsertScenario(w http.ResponseWriter, r *http.Request) {
	var sc model.Scenario
	if err := decodeBody(r, &sc); err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	saved, err := a.Documents.UpsertScenario(r.Context(), chi.URLParam(r, "userId"), sc)
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// @Summary Get a scenario
// @Tags Scenarios
// @Security ApiKeyAuth
// @Produce json
// @Param userId path string true "User id"
// @Param scenarioId path string true "Scenario id"
// @Success 200 {object} model.Scenario
// @Failure 404 {object} ErrorResponse
// @Router /users/{userId}/scenarios/{scenarioId} [get]
func (a *API) GetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := a.Documents.GetScenario(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "scenarioId"))
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// @Summary Delete a scenario
// @Tags Scenarios
// @Security ApiKeyAuth
// @Param userId path string true "User id"
// @Param scenarioId path string true "Scenario id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /users/{userId}/scenarios/{scenarioId} [delete]
func (a *API) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := a.Documents.DeleteScenario(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "scenarioId")); err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Play a scenario
// @Description Publishes the scenario's messages column by column and stops at the first failing column
// @Tags Scenarios
// @Security ApiKeyAuth
// @Produce json
// @Param userId path string true "User id"
// @Param scenarioId path string true "Scenario id"
// @Param from query int false "First column to play (resume)"
// @Success 200 {object} playback.Report
// @Failure 404 {object} ErrorResponse
// @Router /users/{userId}/scenarios/{scenarioId}/play [post]
func (a *API) PlayScenario(w http.ResponseWriter, r *http.Request) {
	from := model.MinColumn
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < model.MinColumn || n > model.MaxColumn {
			writeError(w, r, a.Log, &model.ValidationError{Field: "from", Reason: "must be a column number"})
			return
		}
		from = n
	}

	sc, err := a.Documents.GetScenario(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "scenarioId"))
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Player.Play(r.Context(), sc, from))
}

// @Summary List message samples
// @Tags Message samples
// @Produce json
// @Success 200 {array} model.MessageSample
// @Failure 500 {object} ErrorResponse
// @Router /message-samples [get]
func (a *API) ListMessageSamples(w http.ResponseWriter, r *http.Request) {
	list, err := a.Documents.ListMessageSamples(r.Context())
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// @Summary Create or replace a message sample
// @Tags Message samples
// @Accept json
// @Produce json
// @Param body body model.MessageSample true "Message sample"
// @Success 200 {object} model.MessageSample
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /message-samples [put]
func (a *API) UpsertMessageSample(w http.ResponseWriter, r *http.Request) {
	var sample model.MessageSample
	if err := decodeBody(r, &sample); err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	saved, err := a.Documents.UpsertMessageSample(r.Context(), sample)
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// @Summary Get a message sample
// @Tags Message samples
// @Produce json
// @Param messageId path string true "Message sample id"
// @Success 200 {object} model.MessageSample
// @Failure 404 {object} ErrorResponse
// @Router /message-samples/{messageId} [get]
func (a *API) GetMessageSample(w http.ResponseWriter, r *http.Request) {
	sample, err := a.Documents.GetMessageSample(r.Context(), chi.URLParam(r, "messageId"))
	if err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// @Summary Delete a message sample
// @Tags Message samples
// @Param messageId path string true "Message sample id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /message-samples/{messageId} [delete]
func (a *API) DeleteMessageSample(w http.ResponseWriter, r *http.Request) {
	if err := a.Documents.DeleteMessageSample(r.Context(), chi.URLParam(r, "messageId")); err != nil {
		writeError(w, r, a.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
