package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a job history repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// EnsureSchema creates the history table when it does not exist yet.
func (r *JobRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureTransformJobs); err != nil {
		return fmt.Errorf("repo: ensure schema: %w", err)
	}
	return nil
}

// Create records a job as it starts. Re-submitting an id resets its row.
func (r *JobRepositoryPG) Create(ctx context.Context, job domain.JobRecord) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertTransformJob,
		job.ID,
		job.ToolID,
		string(job.Quality),
		job.IsVIP,
		string(job.Status),
	)
	if err != nil {
		return fmt.Errorf("repo: create job %s: %w", job.ID, err)
	}
	return nil
}

// Finish stores the terminal status of a job.
func (r *JobRepositoryPG) Finish(ctx context.Context, job domain.JobRecord) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFinishTransformJob,
		job.ID,
		string(job.Status),
		job.ResultKey,
		job.ErrorMessage,
		job.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("repo: finish job %s: %w", job.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (domain.JobRecord, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectTransformJob, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.JobRecord{}, domain.ErrNotFound
		}
		return domain.JobRecord{}, fmt.Errorf("repo: get job %s: %w", jobID, err)
	}
	return job, nil
}

// ListRecent returns the newest jobs first.
func (r *JobRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListRecentTransformJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list jobs: %w", err)
	}
	defer rows.Close()
	var jobs []domain.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (domain.JobRecord, error) {
	var (
		job     domain.JobRecord
		quality string
		status  string
	)
	if err := row.Scan(
		&job.ID,
		&job.ToolID,
		&quality,
		&job.IsVIP,
		&status,
		&job.ResultKey,
		&job.ErrorMessage,
		&job.ProcessingTimeMs,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return domain.JobRecord{}, err
	}
	job.Quality = domain.Quality(quality)
	job.Status = domain.JobStatus(status)
	return job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
