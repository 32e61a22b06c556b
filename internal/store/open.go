// Package store picks the durable store a binary runs against.
package store

import (
	"context"
	"fmt"

	"libralend/internal/config"
	"libralend/internal/port"
	"libralend/internal/store/memory"
	"libralend/internal/store/postgres"

	"github.com/rs/zerolog"
)

// Open returns the store selected by cfg.DBDriver along with its closer.
// Postgres stores are migrated before they are returned.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (port.Store, func() error, error) {
	if cfg.DBDriver == "memory" {
		log.Warn().Msg("using the in-memory store, nothing will survive a restart")
		return memory.New(), func() error { return nil }, nil
	}

	s, err := postgres.Open(ctx, cfg.DBDriver, cfg.DatabaseURL,
		postgres.WithMaxTries(cfg.TxMaxTries),
		postgres.WithLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, s.Close, nil
}
