package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

type PageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) *PageRepository {
	return &PageRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/indexer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS source_pages (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	section TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL DEFAULT '',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_source_pages_status ON source_pages(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Upsert keys on url: a reindex re-queues known pages instead of
// duplicating them, and keeps their original id and created_at.
func (r *PageRepository) Upsert(ctx context.Context, page *domain.SourcePage) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO source_pages (
	id, url, title, section, storage_path, chunk_count, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (url) DO UPDATE SET
	section = EXCLUDED.section,
	status = EXCLUDED.status,
	error_message = EXCLUDED.error_message,
	updated_at = EXCLUDED.updated_at
`,
		page.ID, page.URL, page.Title, page.Section, page.StoragePath, page.ChunkCount,
		string(page.Status), page.Error, page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

func (r *PageRepository) GetByURL(ctx context.Context, url string) (*domain.SourcePage, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, url, title, section, storage_path, chunk_count, status, error_message, created_at, updated_at
FROM source_pages
WHERE url = $1
`, url)

	var page domain.SourcePage
	var status string

	err := row.Scan(
		&page.ID, &page.URL, &page.Title, &page.Section, &page.StoragePath, &page.ChunkCount,
		&status, &page.Error, &page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPageNotFound, "get page", fmt.Errorf("url %s", url))
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}

	page.Status = domain.PageStatus(status)
	return &page, nil
}

func (r *PageRepository) UpdateStatus(ctx context.Context, url string, status domain.PageStatus, chunkCount int, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE source_pages
SET status = $2, chunk_count = $3, error_message = $4, updated_at = $5
WHERE url = $1
`, url, string(status), chunkCount, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update page status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrPageNotFound, "update page status", fmt.Errorf("url %s", url))
	}
	return nil
}

func (r *PageRepository) CountByStatus(ctx context.Context) (map[domain.PageStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT status, COUNT(*)
FROM source_pages
GROUP BY status
`)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.PageStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan page count: %w", err)
		}
		counts[domain.PageStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page counts: %w", err)
	}
	return counts, nil
}
