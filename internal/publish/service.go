// Package publish decodes incoming requests against the registry and hands
// the normalized payload to the configured transport.
package publish

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"reggie/internal/messaging"
	"reggie/internal/metrics"
	"reggie/internal/model"
	"reggie/internal/registry"
)

const typeAttribute = "className"

type Service struct {
	registry  *registry.Registry
	publisher messaging.Publisher
	transport string
	tracer    trace.Tracer
	log       zerolog.Logger
}

// NewService publishes through pub. transport labels metrics and spans.
func NewService(reg *registry.Registry, pub messaging.Publisher, transport string, log zerolog.Logger) *Service {
	return &Service{
		registry:  reg,
		publisher: pub,
		transport: transport,
		tracer:    otel.Tracer("reggie/internal/publish"),
		log:       log.With().Str("component", "publish").Logger(),
	}
}

// Publish validates req, decodes its message as req.ClassName and sends the
// normalized JSON to req.Topic. Requests that fail validation or decoding
// never reach the transport.
func (s *Service) Publish(ctx context.Context, req model.PublishRequest) (model.PublishResult, error) {
	if req.ClassName == "" {
		return model.PublishResult{}, &model.ValidationError{Field: "className", Reason: "is required"}
	}
	if req.Topic == "" {
		return model.PublishResult{}, &model.ValidationError{Field: "topic", Reason: "is required"}
	}
	// the published type is carried in this attribute; a caller value may only repeat it
	if v, ok := req.Attributes[typeAttribute]; ok && v != req.ClassName {
		return model.PublishResult{}, &model.ValidationError{
			Field:  "attributes." + typeAttribute,
			Reason: "is reserved for the message type",
		}
	}

	decoded, err := s.registry.Decode(req.ClassName, req.Message)
	if err != nil {
		s.log.Warn().Err(err).Str("class_name", req.ClassName).Str("topic", req.Topic).Msg("rejected message")
		return model.PublishResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "publish "+req.Topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String(s.transport),
			semconv.MessagingDestinationName(req.Topic),
			attribute.String("reggie.message_type", decoded.Type),
		),
	)
	defer span.End()

	attrs := messaging.WithTraceContext(ctx, req.Attributes)
	attrs[typeAttribute] = decoded.Type

	start := time.Now()
	id, err := s.publisher.Publish(ctx, req.Topic, decoded.Payload, attrs)
	metrics.PublishDuration.WithLabelValues(s.transport).Observe(time.Since(start).Seconds())
	metrics.MessagesPublished.WithLabelValues(s.transport, req.Topic, metrics.Result(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error().Err(err).Str("class_name", decoded.Type).Str("topic", req.Topic).Msg("publish failed")
		return model.PublishResult{}, err
	}
	span.SetAttributes(semconv.MessagingMessageID(id))

	s.log.Info().
		Str("class_name", decoded.Type).
		Str("topic", req.Topic).
		Str("message_id", id).
		Dur("took", time.Since(start)).
		Msg("message published")

	return model.PublishResult{
		MessageID: id,
		Topic:     req.Topic,
		Type:      decoded.Type,
		Payload:   decoded.Payload,
		Fields:    decoded.Fields,
	}, nil
}
