package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS download_jobs (
    id UUID PRIMARY KEY,
    user_id TEXT,
    source_url TEXT NOT NULL,
    source_platform TEXT NOT NULL DEFAULT 'other',
    media_type TEXT NOT NULL DEFAULT 'video',
    preferred_quality TEXT NOT NULL DEFAULT '1080p',
    status TEXT NOT NULL DEFAULT 'pending',
    progress INTEGER NOT NULL DEFAULT 0,
    speed_bps BIGINT NOT NULL DEFAULT 0,
    eta_seconds BIGINT NOT NULL DEFAULT 0,
    remote_job_id BIGINT NOT NULL DEFAULT 0,
    remote_package_id BIGINT NOT NULL DEFAULT 0,
    remote_link_ids BIGINT[] NOT NULL DEFAULT '{}',
    file_name TEXT NOT NULL DEFAULT '',
    file_size BIGINT NOT NULL DEFAULT 0,
    file_path TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    host TEXT NOT NULL DEFAULT '',
    link_count INTEGER NOT NULL DEFAULT 0,
    availability TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    retry_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    started_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_download_jobs_user_created
    ON download_jobs (user_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_download_jobs_status
    ON download_jobs (status);
`

func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
