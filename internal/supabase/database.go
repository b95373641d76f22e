package supabase

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"photo-studio-backend/internal/models"
)

// DatabaseClient keeps the history of finished generations in Postgres.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// NewDatabaseClientFromDB wraps an existing handle.
func NewDatabaseClientFromDB(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

func (d *DatabaseClient) RecordJob(ctx context.Context, job models.JobRecord) error {
	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO generation_jobs (id, user_id, mode, prompt, image_count, provider_job_id, status, result_url, failure_reason, poll_attempts, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, id, job.UserID, string(job.Mode), job.Prompt, job.ImageCount,
		nullString(job.ProviderJobID), string(job.Status), nullString(job.ResultURL), nullString(job.FailureReason),
		job.PollAttempts, job.StartedAt, job.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}
	return nil
}

func (d *DatabaseClient) ListJobs(ctx context.Context, userID string, limit int) ([]models.JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, mode, prompt, image_count, provider_job_id, status, result_url, failure_reason, poll_attempts, started_at, finished_at
		FROM generation_jobs
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.JobRecord
	for rows.Next() {
		var (
			job                                   models.JobRecord
			mode, status                          string
			providerJobID, resultURL, failureText sql.NullString
		)
		err := rows.Scan(
			&job.ID, &job.UserID, &mode, &job.Prompt, &job.ImageCount,
			&providerJobID, &status, &resultURL, &failureText,
			&job.PollAttempts, &job.StartedAt, &job.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		job.Mode = models.Mode(mode)
		job.Status = models.Phase(status)
		job.ProviderJobID = providerJobID.String
		job.ResultURL = resultURL.String
		job.FailureReason = failureText.String
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
