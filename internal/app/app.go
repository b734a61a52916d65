// Package app wires the configured backends into the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"reggie/internal/api"
	"reggie/internal/auth"
	"reggie/internal/config"
	"reggie/internal/documents"
	"reggie/internal/message"
	"reggie/internal/messaging"
	"reggie/internal/metrics"
	"reggie/internal/playback"
	"reggie/internal/publish"
	"reggie/internal/registry"
	"reggie/internal/storage"
	"reggie/internal/worker"
)

type App struct {
	Registry  *registry.Registry
	Transport messaging.Transport
	Bucket    storage.Bucket
	Pool      *worker.WorkerPool
	API       *api.API

	log zerolog.Logger
}

// LoadRegistry registers the built-in types and every CUE definition found
// in cfg.SchemaDir.
func LoadRegistry(cfg config.RegistryConfig, log zerolog.Logger) (*registry.Registry, error) {
	reg := registry.New()
	if err := message.RegisterBuiltins(reg); err != nil {
		return nil, err
	}
	if cfg.SchemaDir != "" {
		names, err := registry.LoadCUEDir(reg, cfg.SchemaDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load schemas from %s: %w", cfg.SchemaDir, err)
		}
		log.Info().Strs("types", names).Str("dir", cfg.SchemaDir).Msg("schemas loaded")
	}
	return reg, nil
}

// New connects the transport and blob store selected in cfg and builds the
// services on top of them. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	metrics.Init()

	reg, err := LoadRegistry(cfg.Registry, log)
	if err != nil {
		return nil, err
	}

	transport, err := messaging.Open(ctx, cfg.Transport, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s transport: %w", cfg.Transport.Driver, err)
	}
	if p, ok := transport.(interface{ PeerID() string }); ok {
		log.Info().Str("peer_id", p.PeerID()).Msg("gossip peer started")
	}
	log.Info().Str("driver", transport.Name()).Msg("transport connected")

	bucket, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		transport.Close()
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	log.Info().Str("driver", cfg.Storage.Driver).Str("bucket", cfg.Storage.Bucket).Msg("storage connected")

	pool := worker.NewWorkerPool("playback", cfg.Playback.Workers, log)
	pool.Start()

	pub := publish.NewService(reg, transport, transport.Name(), log)
	player := playback.NewPlayer(pub, pool, playback.Options{
		ColumnDelay: cfg.Playback.ColumnDelay,
		MaxColumn:   cfg.Playback.MaxColumn,
	}, log)

	authn := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if !authn.Enabled() {
		log.Warn().Msg("auth.jwt_secret not set; scenario routes are not protected")
	}

	return &App{
		Registry:  reg,
		Transport: transport,
		Bucket:    bucket,
		Pool:      pool,
		API: &api.API{
			Publisher: pub,
			Documents: documents.NewService(bucket, log),
			Player:    player,
			Registry:  reg,
			Auth:      authn,
			Checks: []api.Check{
				{Name: "transport", Ping: transport.Ping},
				{Name: "storage", Ping: bucket.Ping},
			},
			Cfg: cfg.Server,
			Log: log,
		},
		log: log,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.API.Router()
}

// Close stops the worker pool and closes the transport and the blob store.
func (a *App) Close() error {
	a.Pool.Stop()
	return errors.Join(a.Transport.Close(), a.Bucket.Close())
}
