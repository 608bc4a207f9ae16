package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

var _ service.JobStore = (*SQLiteJobStore)(nil)

// jobTimeLayout is fixed width so stored timestamps compare as text.
const jobTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteJobStore persists report jobs in the jobs table.
type SQLiteJobStore struct {
	db *sql.DB
}

// NewSQLiteJobStore creates a new SQLite-based job store. The schema is
// created by storage migrations.
func NewSQLiteJobStore(db *sql.DB) *SQLiteJobStore {
	return &SQLiteJobStore{db: db}
}

// Create inserts a new pending job.
func (s *SQLiteJobStore) Create(ctx context.Context) (*model.Job, error) {
	now := time.Now().UTC()
	job := &model.Job{
		ID:        uuid.New().String(),
		Status:    model.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, result, error, created_at, updated_at)
		VALUES (?, ?, NULL, NULL, ?, ?)
	`, job.ID, string(job.Status), now.Format(jobTimeLayout), now.Format(jobTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	slog.Debug("Created report job in database", "job_id", job.ID)
	return job, nil
}

// Update stores the job's status, result and error.
func (s *SQLiteJobStore) Update(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	var result, errorStr sql.NullString
	if job.Result != nil {
		data, err := json.Marshal(job.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal job result: %w", err)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}
	if job.Error != "" {
		errorStr = sql.NullString{String: job.Error, Valid: true}
	}

	updatedAt := job.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, result = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, string(job.Status), result, errorStr, updatedAt.UTC().Format(jobTimeLayout), job.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job %s: %w", job.ID, common.ErrNotFound)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *SQLiteJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	var (
		status                   string
		result, errorStr         sql.NullString
		createdAtStr, updatedStr string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT status, result, error, created_at, updated_at
		FROM jobs
		WHERE id = ?
	`, id).Scan(&status, &result, &errorStr, &createdAtStr, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	job := &model.Job{
		ID:     id,
		Status: model.JobStatus(status),
		Error:  errorStr.String,
	}

	job.CreatedAt, err = time.Parse(jobTimeLayout, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	job.UpdatedAt, err = time.Parse(jobTimeLayout, updatedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if result.Valid {
		var report model.Report
		if err := json.Unmarshal([]byte(result.String), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
		job.Result = &report
	}

	return job, nil
}

// DeleteExpired removes finished jobs last updated more than ttl ago.
func (s *SQLiteJobStore) DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).UTC().Format(jobTimeLayout)

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM jobs WHERE status != ? AND updated_at < ?
	`, string(model.JobPending), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired jobs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		slog.Debug("Deleted expired report jobs", "count", n)
	}
	return n, nil
}
