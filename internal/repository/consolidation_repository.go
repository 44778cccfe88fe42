package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

// ConsolidationRepository handles persistence for batch consolidation jobs.
type ConsolidationRepository struct {
	db *sqlx.DB
}

// NewConsolidationRepository creates a new repository instance.
func NewConsolidationRepository(db *sqlx.DB) *ConsolidationRepository {
	return &ConsolidationRepository{db: db}
}

const consolidationColumns = "id, status, mode, extensions, include_tests, archive_name, total_projects, succeeded, failed, results, similarity, output_path, error_message, requested_by, created_at, started_at, finished_at"

// Create persists a new queued job.
func (r *ConsolidationRepository) Create(ctx context.Context, job *models.ConsolidationJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ConsolidationQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO consolidation_jobs (id, status, mode, extensions, include_tests, archive_name, total_projects, succeeded, failed, results, similarity, output_path, error_message, requested_by, created_at, started_at, finished_at)
		VALUES (:id, :status, :mode, :extensions, :include_tests, :archive_name, :total_projects, :succeeded, :failed, :results, :similarity, :output_path, :error_message, :requested_by, :created_at, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create consolidation job: %w", err)
	}
	return nil
}

// FindByID returns a job by id.
func (r *ConsolidationRepository) FindByID(ctx context.Context, id string) (*models.ConsolidationJob, error) {
	query := fmt.Sprintf("SELECT %s FROM consolidation_jobs WHERE id = $1", consolidationColumns)
	var job models.ConsolidationJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListRecent returns the newest jobs, optionally filtered by requester.
func (r *ConsolidationRepository) ListRecent(ctx context.Context, requestedBy string, limit int) ([]models.ConsolidationJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := fmt.Sprintf("SELECT %s FROM consolidation_jobs", consolidationColumns)
	var args []interface{}
	if requestedBy != "" {
		query += " WHERE requested_by = $1"
		args = append(args, requestedBy)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	var jobs []models.ConsolidationJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("list consolidation jobs: %w", err)
	}
	return jobs, nil
}

// MarkProcessing flips a queued job to processing and stamps the start time.
func (r *ConsolidationRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE consolidation_jobs SET status = $1, started_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, models.ConsolidationProcessing, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark consolidation processing: %w", err)
	}
	return nil
}

// MarkCompleted records the outcome of a finished batch run.
func (r *ConsolidationRepository) MarkCompleted(ctx context.Context, id string, total, succeeded, failed int, results, similarity json.RawMessage, outputPath string) error {
	const query = `UPDATE consolidation_jobs SET status = $1, total_projects = $2, succeeded = $3, failed = $4, results = $5, similarity = $6, output_path = $7, finished_at = $8 WHERE id = $9`
	if _, err := r.db.ExecContext(ctx, query, models.ConsolidationCompleted, total, succeeded, failed, results, similarity, outputPath, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark consolidation completed: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure.
func (r *ConsolidationRepository) MarkFailed(ctx context.Context, id, message string) error {
	const query = `UPDATE consolidation_jobs SET status = $1, error_message = $2, finished_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ConsolidationFailed, message, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark consolidation failed: %w", err)
	}
	return nil
}

// DeleteOlderThan removes finished job rows past the retention window and
// returns their output paths so the caller can unlink the archives.
func (r *ConsolidationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `DELETE FROM consolidation_jobs
		WHERE finished_at IS NOT NULL AND finished_at < $1
		RETURNING COALESCE(output_path, '')`
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, query, cutoff); err != nil {
		return nil, fmt.Errorf("delete stale consolidation jobs: %w", err)
	}

	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
