package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS extractions (
	id           UUID NOT NULL,
	document_id  TEXT PRIMARY KEY,
	profile_id   TEXT NOT NULL,
	file_name    TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	result       JSONB,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS extractions_profile_idx ON extractions (profile_id, created_at);
`

const postgresSelect = `SELECT id::text, document_id, profile_id, file_name, content_hash, status, result::text, error, created_at, updated_at FROM extractions`

type postgresRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// OpenPostgres creates a pgx pool, checks it and applies the schema.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (ExtractionRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("repository.postgres.connect")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("repository.postgres.connect_failed", "error", err)
		return nil, common.NewAppError("CONFIG_ERROR", "parse database dsn", errors.Join(common.ErrConfig, err))
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "benefits-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("repository.postgres.connect_failed", "error", err)
		return nil, dbError("connect", err)
	}
	r := &postgresRepo{pool: pool, log: logger}
	if err := r.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, dbError("ping", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, dbError("migrate", err)
	}
	logger.Info("repository.postgres.connected")
	return r, nil
}

func (r *postgresRepo) Save(ctx context.Context, rec *entity.ExtractionRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	rw, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO extractions (id, document_id, profile_id, file_name, content_hash, status, result, error, created_at, updated_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)
ON CONFLICT (document_id) DO UPDATE SET
	id = excluded.id,
	profile_id = excluded.profile_id,
	file_name = excluded.file_name,
	content_hash = excluded.content_hash,
	status = excluded.status,
	result = excluded.result,
	error = excluded.error,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`,
		rw.ID, rw.DocumentID, rw.ProfileID, rw.FileName, rw.ContentHash, rw.Status,
		rw.Result, rw.Error, rw.CreatedAt, rw.UpdatedAt,
	)
	if err != nil {
		r.log.Error("repository.save.failed", "document_id", rec.DocumentID, "error", err)
		return dbError("save extraction", err)
	}
	r.log.Debug("repository.save.ok", "document_id", rec.DocumentID, "status", rec.Status)
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, documentID string) (*entity.ExtractionRecord, error) {
	rec, err := scanPostgres(r.pool.QueryRow(ctx, postgresSelect+` WHERE document_id = $1`, documentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(documentID)
	}
	if err != nil {
		return nil, dbError("get extraction", err)
	}
	return rec, nil
}

func (r *postgresRepo) List(ctx context.Context, profileID string) ([]*entity.ExtractionRecord, error) {
	q := postgresSelect
	var args []any
	if profileID != "" {
		q += ` WHERE profile_id = $1`
		args = append(args, profileID)
	}
	q += ` ORDER BY created_at DESC, document_id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, dbError("list extractions", err)
	}
	defer rows.Close()

	out := []*entity.ExtractionRecord{}
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, dbError("list extractions", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list extractions", err)
	}
	return out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, documentID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM extractions WHERE document_id = $1`, documentID)
	if err != nil {
		return dbError("delete extraction", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(documentID)
	}
	r.log.Info("repository.delete.ok", "document_id", documentID)
	return nil
}

// Ping checks the pool; used as the health check.
func (r *postgresRepo) Ping(ctx context.Context) error {
	r.log.Debug("repository.postgres.ping")
	return r.pool.Ping(ctx)
}

func (r *postgresRepo) Close() error {
	r.log.Info("repository.postgres.close")
	r.pool.Close()
	return nil
}

func scanPostgres(s pgx.Row) (*entity.ExtractionRecord, error) {
	var (
		rw               row
		created, updated time.Time
	)
	if err := s.Scan(&rw.ID, &rw.DocumentID, &rw.ProfileID, &rw.FileName, &rw.ContentHash,
		&rw.Status, &rw.Result, &rw.Error, &created, &updated); err != nil {
		return nil, err
	}
	rw.CreatedAt, rw.UpdatedAt = created, updated
	return rw.record()
}
