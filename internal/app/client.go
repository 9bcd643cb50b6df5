package app

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/beautyshelf-backend/internal/client/mirror"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/remote"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/syncer"
	"github.com/heartmarshall/beautyshelf-backend/internal/config"
)

// ClientSession is the wired client: local mirror, API client and the
// mediator between them.
type ClientSession struct {
	Mediator *syncer.Mediator
	API      *remote.Client
	store    *mirror.Store
}

// OpenClient opens the local mirror, recovers interrupted syncs and returns
// a ready session. Close it when done.
func OpenClient(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger) (*ClientSession, error) {
	store, err := mirror.Open(ctx, cfg.Mirror.Path, logger)
	if err != nil {
		return nil, err
	}

	api := remote.New(cfg.API.BaseURL, cfg.API.Token, UserAgent(), cfg.API.RequestTimeout, logger)
	med := syncer.New(store, api, logger, syncer.Options{
		MaxAttempts:    cfg.Sync.MaxAttempts,
		InitialBackoff: cfg.Sync.InitialBackoff,
		MaxBackoff:     cfg.Sync.MaxBackoff,
		Concurrency:    cfg.Sync.Concurrency,
	})
	if err := med.Recover(ctx); err != nil {
		med.Close()
		_ = store.Close()
		return nil, err
	}

	logger.DebugContext(ctx, "client session opened",
		slog.String("mirror", cfg.Mirror.Path),
		slog.String("api", cfg.API.BaseURL),
	)
	return &ClientSession{Mediator: med, API: api, store: store}, nil
}

// Close stops background syncs and closes the mirror. Entries still being
// pushed stay pending and are picked up next time.
func (s *ClientSession) Close() error {
	s.Mediator.Close()
	return s.store.Close()
}
