package cli

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"reggie/internal/config"
	"reggie/internal/consumer"
	"reggie/internal/logging"
	"reggie/internal/messaging"
	"reggie/internal/telemetry"
)

// tailLine is one delivery printed by tail.
type tailLine struct {
	ID         string            `json:"id"`
	Topic      string            `json:"topic"`
	Attributes map[string]string `json:"attributes,omitempty"`
	TraceID    string            `json:"traceId,omitempty"`
	Data       json.RawMessage   `json:"data"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewTailCommand creates the tail command.
func NewTailCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tail <topic>",
		Short: "Print messages published to a topic as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// propagators only, so trace ids can be read from attributes
			if _, err := telemetry.Setup(ctx, config.TelemetryConfig{}); err != nil {
				return err
			}

			transport, err := messaging.Open(ctx, cfg.Transport, log)
			if err != nil {
				return err
			}
			defer transport.Close()

			return runTail(ctx, transport, args[0], cmd.OutOrStdout(), log)
		},
	}
}

// runTail prints every delivery on topic to w until ctx is done or the
// subscription ends.
func runTail(ctx context.Context, sub messaging.Subscriber, topic string, w io.Writer, log zerolog.Logger) error {
	var mu sync.Mutex
	enc := json.NewEncoder(w)

	c, err := consumer.StartConsumer(ctx, sub, topic, func(d messaging.Delivery) {
		line := tailLine{
			ID:         d.ID,
			Topic:      d.Topic,
			Attributes: d.Attributes,
			Data:       d.Data,
			Timestamp:  d.Timestamp,
		}
		if !json.Valid(d.Data) {
			line.Data, _ = json.Marshal(string(d.Data))
		}
		sc := trace.SpanContextFromContext(messaging.ContextFromAttributes(context.Background(), d.Attributes))
		if sc.HasTraceID() {
			line.TraceID = sc.TraceID().String()
		}

		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(line); err != nil {
			log.Error().Err(err).Msg("failed to write delivery")
		}
	}, log)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-c.Done():
	}
	c.Stop()
	return nil
}
