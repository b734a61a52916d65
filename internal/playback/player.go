// Package playback replays a stored scenario through the publish pipeline,
// one column at a time.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reggie/internal/metrics"
	"reggie/internal/model"
	"reggie/internal/worker"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Publisher is the part of publish.Service a Player needs.
type Publisher interface {
	Publish(ctx context.Context, req model.PublishRequest) (model.PublishResult, error)
}

// MessageResult is the outcome of publishing one scenario message.
type MessageResult struct {
	ID        string               `json:"id"`
	ClassName string               `json:"className"`
	Topic     string               `json:"topic"`
	Result    *model.PublishResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

type ColumnResult struct {
	Column   int             `json:"column"`
	Messages []MessageResult `json:"messages"`
}

// Report describes a finished playback. CompletedColumn is the last column
// whose messages were all published; playback can resume after it.
type Report struct {
	ScenarioID      string         `json:"scenarioId"`
	Status          Status         `json:"status"`
	CompletedColumn int            `json:"completedColumn"`
	Columns         []ColumnResult `json:"columns"`
	Errors          []string       `json:"errors,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	FinishedAt      time.Time      `json:"finishedAt"`
}

type Options struct {
	// ColumnDelay separates two non-empty columns.
	ColumnDelay time.Duration
	// MaxColumn is the last column played.
	MaxColumn int
}

type Player struct {
	pub  Publisher
	pool *worker.WorkerPool
	opts Options
	log  zerolog.Logger
}

// NewPlayer publishes through pub using pool for the messages of a column.
// The pool must be started.
func NewPlayer(pub Publisher, pool *worker.WorkerPool, opts Options, log zerolog.Logger) *Player {
	if opts.MaxColumn <= 0 || opts.MaxColumn > model.MaxColumn {
		opts.MaxColumn = model.MaxColumn
	}
	return &Player{pub: pub, pool: pool, opts: opts, log: log.With().Str("component", "playback").Logger()}
}

// Play publishes the messages of sc column by column, starting at from
// (values below 1 start at the first column). All messages of a column are
// published concurrently; empty columns are skipped without delay. The first
// column with a failed message ends playback with StatusFailed. A cancelled
// ctx ends it with StatusCancelled.
func (p *Player) Play(ctx context.Context, sc model.Scenario, from int) Report {
	if from < model.MinColumn {
		from = model.MinColumn
	}
	rep := Report{
		ScenarioID:      sc.ID,
		Status:          StatusCompleted,
		CompletedColumn: from - 1,
		Columns:         []ColumnResult{},
		StartedAt:       time.Now().UTC(),
	}
	log := p.log.With().Str("scenario_id", sc.ID).Logger()
	log.Info().Int("from", from).Int("messages", len(sc.Messages)).Msg("playback started")

	byColumn := groupByColumn(sc.Messages)
	first := true
	for col := from; col <= p.opts.MaxColumn; col++ {
		msgs := byColumn[col]
		if len(msgs) == 0 {
			continue
		}
		if !first && !p.wait(ctx) {
			rep.Status = StatusCancelled
			break
		}
		first = false
		if ctx.Err() != nil {
			rep.Status = StatusCancelled
			break
		}

		res, failed, err := p.playColumn(ctx, col, msgs)
		rep.Columns = append(rep.Columns, res)
		if err != nil {
			// pool stopped or ctx done before every message was handed over
			rep.Status = StatusCancelled
			break
		}
		if failed {
			rep.Status = StatusFailed
			for _, m := range res.Messages {
				if m.Error != "" {
					rep.Errors = append(rep.Errors, "failed to send "+m.ClassName+": "+m.Error)
				}
			}
			break
		}
		rep.CompletedColumn = col
	}

	rep.FinishedAt = time.Now().UTC()
	metrics.PlaybackRuns.WithLabelValues(string(rep.Status)).Inc()
	log.Info().
		Str("status", string(rep.Status)).
		Int("completed_column", rep.CompletedColumn).
		Dur("took", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("playback finished")
	return rep
}

func (p *Player) playColumn(ctx context.Context, col int, msgs []model.ScenarioMessage) (ColumnResult, bool, error) {
	res := ColumnResult{Column: col, Messages: make([]MessageResult, len(msgs))}

	var wg sync.WaitGroup
	var submitErr error
	for i, m := range msgs {
		res.Messages[i] = MessageResult{ID: m.ID, ClassName: m.Payload.ClassName, Topic: m.Payload.Topic}
		wg.Add(1)
		err := p.pool.Submit(ctx, func() {
			defer wg.Done()
			out, err := p.pub.Publish(ctx, m.Payload)
			if err != nil {
				res.Messages[i].Error = err.Error()
				return
			}
			res.Messages[i].Result = &out
		})
		if err != nil {
			wg.Done()
			submitErr = err
			res.Messages[i].Error = err.Error()
			break
		}
	}
	wg.Wait()

	failed := false
	for _, m := range res.Messages {
		if m.Error != "" {
			failed = true
		}
	}
	return res, failed, submitErr
}

func (p *Player) wait(ctx context.Context) bool {
	if p.opts.ColumnDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(p.opts.ColumnDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// groupByColumn keeps the scenario order of messages within each column.
func groupByColumn(msgs []model.ScenarioMessage) map[int][]model.ScenarioMessage {
	out := make(map[int][]model.ScenarioMessage)
	for _, m := range msgs {
		out[m.Column] = append(out[m.Column], m)
	}
	return out
}
