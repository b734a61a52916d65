// Package documents stores scenarios and message samples as JSON objects in
// a storage.Bucket.
//
// Object names:
//
//	<userId>/scenarios/<scenarioId>.json
//	message-samples/<messageId>.json
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"reggie/internal/model"
	"reggie/internal/storage"
)

const (
	scenariosDir      = "/scenarios/"
	messageSamplesDir = "message-samples/"
	jsonSuffix        = ".json"
	jsonContentType   = "application/json"
)

// ReservedUserID cannot own scenarios; its directory holds the message samples.
const ReservedUserID = "message-samples"

type Service struct {
	bucket storage.Bucket
	log    zerolog.Logger
}

func NewService(bucket storage.Bucket, log zerolog.Logger) *Service {
	return &Service{bucket: bucket, log: log.With().Str("component", "documents").Logger()}
}

func ScenarioName(userID, scenarioID string) string {
	return userID + scenariosDir + scenarioID + jsonSuffix
}

func MessageSampleName(messageID string) string {
	return messageSamplesDir + messageID + jsonSuffix
}

// UpsertScenario writes s under userID, replacing any previous version.
func (s *Service) UpsertScenario(ctx context.Context, userID string, sc model.Scenario) (model.Scenario, error) {
	if err := validateUserID(userID); err != nil {
		return model.Scenario{}, err
	}
	if err := validateScenario(sc); err != nil {
		return model.Scenario{}, err
	}
	if err := s.writeJSON(ctx, ScenarioName(userID, sc.ID), sc); err != nil {
		return model.Scenario{}, err
	}
	s.log.Info().Str("user_id", userID).Str("scenario_id", sc.ID).Int("messages", len(sc.Messages)).Msg("scenario saved")
	return sc, nil
}

func (s *Service) ListScenarios(ctx context.Context, userID string) ([]model.Scenario, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return readAll[model.Scenario](ctx, s.bucket, userID+scenariosDir)
}

func (s *Service) GetScenario(ctx context.Context, userID, scenarioID string) (model.Scenario, error) {
	if err := validateUserID(userID); err != nil {
		return model.Scenario{}, err
	}
	if err := validateID("scenario id", scenarioID); err != nil {
		return model.Scenario{}, err
	}
	var sc model.Scenario
	if err := s.readJSON(ctx, ScenarioName(userID, scenarioID), &sc); err != nil {
		return model.Scenario{}, err
	}
	return sc, nil
}

// DeleteScenario removes a scenario. A missing scenario yields storage.ErrNotFound.
func (s *Service) DeleteScenario(ctx context.Context, userID, scenarioID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := validateID("scenario id", scenarioID); err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, ScenarioName(userID, scenarioID)); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Str("scenario_id", scenarioID).Msg("scenario deleted")
	return nil
}

// ListUserIDs returns every user that owns at least one scenario, sorted.
func (s *Service) ListUserIDs(ctx context.Context) ([]string, error) {
	names, err := s.bucket.Names(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, name := range names {
		user, rest, ok := strings.Cut(name, "/")
		if !ok || user == ReservedUserID || !strings.HasPrefix("/"+rest, scenariosDir) {
			continue
		}
		seen[user] = struct{}{}
	}
	users := make([]string, 0, len(seen))
	for user := range seen {
		users = append(users, user)
	}
	sort.Strings(users)
	return users, nil
}

func (s *Service) UpsertMessageSample(ctx context.Context, sample model.MessageSample) (model.MessageSample, error) {
	if err := validateID("message id", sample.MessageID); err != nil {
		return model.MessageSample{}, err
	}
	if err := s.writeJSON(ctx, MessageSampleName(sample.MessageID), sample); err != nil {
		return model.MessageSample{}, err
	}
	s.log.Info().Str("message_id", sample.MessageID).Str("class_name", sample.ClassName).Msg("message sample saved")
	return sample, nil
}

func (s *Service) ListMessageSamples(ctx context.Context) ([]model.MessageSample, error) {
	return readAll[model.MessageSample](ctx, s.bucket, messageSamplesDir)
}

func (s *Service) GetMessageSample(ctx context.Context, messageID string) (model.MessageSample, error) {
	if err := validateID("message id", messageID); err != nil {
		return model.MessageSample{}, err
	}
	var sample model.MessageSample
	if err := s.readJSON(ctx, MessageSampleName(messageID), &sample); err != nil {
		return model.MessageSample{}, err
	}
	return sample, nil
}

func (s *Service) DeleteMessageSample(ctx context.Context, messageID string) error {
	if err := validateID("message id", messageID); err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, MessageSampleName(messageID)); err != nil {
		return err
	}
	s.log.Info().Str("message_id", messageID).Msg("message sample deleted")
	return nil
}

func (s *Service) writeJSON(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &storage.Error{Op: "encode", Name: name, Err: err}
	}
	return s.bucket.Put(ctx, name, jsonContentType, data)
}

func (s *Service) readJSON(ctx context.Context, name string, v any) error {
	obj, err := s.bucket.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj.Data, v); err != nil {
		return &storage.Error{Op: "decode", Name: name, Err: err}
	}
	return nil
}

// readAll decodes every .json object directly under prefix.
func readAll[T any](ctx context.Context, bucket storage.Bucket, prefix string) ([]T, error) {
	objects, err := bucket.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(objects))
	for _, obj := range objects {
		rest := strings.TrimPrefix(obj.Name, prefix)
		if !strings.HasSuffix(rest, jsonSuffix) || strings.Contains(rest, "/") {
			continue
		}
		var v T
		if err := json.Unmarshal(obj.Data, &v); err != nil {
			return nil, &storage.Error{Op: "decode", Name: obj.Name, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}

func validateID(field, id string) error {
	switch {
	case id == "":
		return &model.ValidationError{Field: field, Reason: "must not be empty"}
	case strings.Contains(id, "/"):
		return &model.ValidationError{Field: field, Reason: "must not contain '/'"}
	}
	return nil
}

func validateUserID(userID string) error {
	if err := validateID("user id", userID); err != nil {
		return err
	}
	if userID == ReservedUserID {
		return &model.ValidationError{Field: "user id", Reason: fmt.Sprintf("%q is reserved", ReservedUserID)}
	}
	return nil
}

func validateScenario(sc model.Scenario) error {
	if err := validateID("scenario id", sc.ID); err != nil {
		return err
	}
	for i, m := range sc.Messages {
		if m.Column < model.MinColumn || m.Column > model.MaxColumn {
			return &model.ValidationError{
				Field:  fmt.Sprintf("messages[%d].column", i),
				Reason: fmt.Sprintf("must be between %d and %d", model.MinColumn, model.MaxColumn),
			}
		}
	}
	return nil
}
