package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS extractions (
	id           TEXT NOT NULL,
	document_id  TEXT PRIMARY KEY,
	profile_id   TEXT NOT NULL,
	file_name    TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	result       TEXT,
	error        TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS extractions_profile_idx ON extractions (profile_id, created_at);
`

const sqliteColumns = `id, document_id, profile_id, file_name, content_hash, status, result, error, created_at, updated_at`

type sqliteRepo struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLite opens (creating if needed) the SQLite database at path.
func NewSQLite(ctx context.Context, path string, logger *slog.Logger) (ExtractionRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	logger.Info("repository.sqlite.open", "path", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; also keeps :memory: on one connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &sqliteRepo{db: db, log: logger}, nil
}

func (r *sqliteRepo) Save(ctx context.Context, rec *entity.ExtractionRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	rw, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO extractions (`+sqliteColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		rw.Result, rw.Error, formatTime(rw.CreatedAt), formatTime(rw.UpdatedAt),
	)
	if err != nil {
		r.log.Error("repository.save.failed", "document_id", rec.DocumentID, "error", err)
		return dbError("save extraction", err)
	}
	r.log.Debug("repository.save.ok", "document_id", rec.DocumentID, "status", rec.Status)
	return nil
}

func (r *sqliteRepo) Get(ctx context.Context, documentID string) (*entity.ExtractionRecord, error) {
	rw := r.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM extractions WHERE document_id = ?`, documentID)
	rec, err := scanSQLite(rw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(documentID)
	}
	if err != nil {
		return nil, dbError("get extraction", err)
	}
	return rec, nil
}

func (r *sqliteRepo) List(ctx context.Context, profileID string) ([]*entity.ExtractionRecord, error) {
	q := `SELECT ` + sqliteColumns + ` FROM extractions`
	var args []any
	if profileID != "" {
		q += ` WHERE profile_id = ?`
		args = append(args, profileID)
	}
	q += ` ORDER BY created_at DESC, document_id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbError("list extractions", err)
	}
	defer rows.Close()

	out := []*entity.ExtractionRecord{}
	for rows.Next() {
		rec, err := scanSQLite(rows)
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

func (r *sqliteRepo) Delete(ctx context.Context, documentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM extractions WHERE document_id = ?`, documentID)
	if err != nil {
		return dbError("delete extraction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError("delete extraction", err)
	}
	if n == 0 {
		return notFound(documentID)
	}
	r.log.Info("repository.delete.ok", "document_id", documentID)
	return nil
}

func (r *sqliteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqliteRepo) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(s scanner) (*entity.ExtractionRecord, error) {
	var (
		rw               row
		created, updated string
	)
	if err := s.Scan(&rw.ID, &rw.DocumentID, &rw.ProfileID, &rw.FileName, &rw.ContentHash,
		&rw.Status, &rw.Result, &rw.Error, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if rw.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if rw.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return rw.record()
}

// formatTime keeps lexical order equal to time order for ORDER BY.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
