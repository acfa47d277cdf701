package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
)

// Open selects the store from the DSN: postgres:// URLs use PostgreSQL,
// anything else is a SQLite file path.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (ExtractionRepository, error) {
	if cfg.IsPostgres() {
		return OpenPostgres(ctx, cfg, logger)
	}
	return NewSQLite(ctx, cfg.DSN, logger)
}

// HealthCheck pings the store with an optional timeout.
func HealthCheck(ctx context.Context, repo ExtractionRepository, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return repo.Ping(ctx)
}
