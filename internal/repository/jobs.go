// Package repository provides Postgres persistence for download jobs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ZyrticX/MP4/internal/models"
	"github.com/lib/pq"
)

// ErrNotFound is returned when no job record matches the given id.
var ErrNotFound = errors.New("job not found")

// jobColumns is the column list every job read uses, in scan order.
const jobColumns = `id, user_id, source_url, source_platform, media_type, preferred_quality,
	status, progress, speed_bps, eta_seconds,
	remote_job_id, remote_package_id, remote_link_ids,
	file_name, file_size, file_path, title, host, link_count, availability,
	error_message, retry_count, created_at, updated_at, started_at, completed_at`

// PostgresJobRepository implements job persistence against PostgreSQL.
// Every operation is a single-record read or write; the orchestrator
// never needs multi-record transactions.
type PostgresJobRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresJobRepository creates a repository using the provided
// database connection.
func NewPostgresJobRepository(db *sql.DB) *PostgresJobRepository {
	return &PostgresJobRepository{DB: db}
}

// Create inserts a new job record.
func (r *PostgresJobRepository) Create(ctx context.Context, job *models.Job) error {
	linkIDs := job.RemoteLinkIDs
	if linkIDs == nil {
		linkIDs = []int64{}
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO download_jobs (
			id, user_id, source_url, source_platform, media_type, preferred_quality,
			status, progress, remote_link_ids, retry_count, created_at, updated_at
		) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, job.ID, job.UserID, job.SourceURL, job.Platform, job.MediaType, job.Quality,
		job.Status, job.Progress, pq.Array(linkIDs), job.RetryCount, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of upd to the job with the given
// id. Returns ErrNotFound when no row matches.
func (r *PostgresJobRepository) Update(ctx context.Context, id string, upd models.JobUpdate) error {
	sets := []string{"updated_at = now()"}
	args := []any{}
	n := 0
	set := func(column string, value any) {
		n++
		sets = append(sets, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
	}

	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.Progress != nil {
		set("progress", *upd.Progress)
	}
	if upd.SpeedBps != nil {
		set("speed_bps", *upd.SpeedBps)
	}
	if upd.ETASeconds != nil {
		set("eta_seconds", *upd.ETASeconds)
	}
	if upd.RemoteJobID != nil {
		set("remote_job_id", *upd.RemoteJobID)
	}
	if upd.RemotePackageID != nil {
		set("remote_package_id", *upd.RemotePackageID)
	}
	if upd.RemoteLinkIDs != nil {
		set("remote_link_ids", pq.Array(*upd.RemoteLinkIDs))
	}
	if upd.FileName != nil {
		set("file_name", *upd.FileName)
	}
	if upd.FileSize != nil {
		set("file_size", *upd.FileSize)
	}
	if upd.FilePath != nil {
		set("file_path", *upd.FilePath)
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Host != nil {
		set("host", *upd.Host)
	}
	if upd.LinkCount != nil {
		set("link_count", *upd.LinkCount)
	}
	if upd.Availability != nil {
		set("availability", *upd.Availability)
	}
	if upd.ErrorMessage != nil {
		set("error_message", *upd.ErrorMessage)
	}
	if upd.RetryCount != nil {
		set("retry_count", *upd.RetryCount)
	}
	if upd.StartedAt != nil {
		set("started_at", *upd.StartedAt)
	}
	if upd.CompletedAt != nil {
		set("completed_at", *upd.CompletedAt)
	}

	n++
	query := fmt.Sprintf("UPDATE download_jobs SET %s WHERE id = $%d", strings.Join(sets, ", "), n)
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a single job record.
func (r *PostgresJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM download_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListByUser returns up to limit jobs owned by userID, newest first.
func (r *PostgresJobRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Job, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM download_jobs
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ListActive returns all jobs in non-terminal states.
func (r *PostgresJobRepository) ListActive(ctx context.Context) ([]models.Job, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM download_jobs
		 WHERE status IN ('pending', 'crawling', 'ready', 'downloading')
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.Job, error) {
	var (
		job       models.Job
		userID    sql.NullString
		linkIDs   pq.Int64Array
		started   sql.NullTime
		completed sql.NullTime
	)
	err := s.Scan(
		&job.ID, &userID, &job.SourceURL, &job.Platform, &job.MediaType, &job.Quality,
		&job.Status, &job.Progress, &job.SpeedBps, &job.ETASeconds,
		&job.RemoteJobID, &job.RemotePackageID, &linkIDs,
		&job.FileName, &job.FileSize, &job.FilePath, &job.Title, &job.Host, &job.LinkCount, &job.Availability,
		&job.ErrorMessage, &job.RetryCount, &job.CreatedAt, &job.UpdatedAt, &started, &completed,
	)
	if err != nil {
		return nil, err
	}
	job.UserID = userID.String
	job.RemoteLinkIDs = []int64(linkIDs)
	if started.Valid {
		job.StartedAt = &started.Time
	}
	if completed.Valid {
		job.CompletedAt = &completed.Time
	}
	return &job, nil
}
