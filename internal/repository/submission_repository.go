package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

// SubmissionRepository handles persistence for student submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new repository instance.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = "id, code, student_name, file_name, storage_path, size_bytes, mime_type, status, grade, summary, rubric_code, commission_code, uploaded_by, created_at, updated_at"

// List returns submissions matching filters with pagination metadata.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	base := "FROM submissions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.RubricCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(rubric_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.RubricCode)
	}
	if filter.CommissionCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(commission_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.CommissionCode)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(student_name) LIKE $%d OR LOWER(file_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy, order := sanitizeSort(filter.SortBy, filter.SortOrder, map[string]bool{
		"code":         true,
		"student_name": true,
		"status":       true,
		"grade":        true,
		"created_at":   true,
		"updated_at":   true,
	})
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", submissionColumns, base, sortBy, order, limit, offset)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	return submissions, total, nil
}

// FindByID returns a submission by row id.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE id = $1", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindByRubric returns every submission attached to one rubric of one
// commission, ordered by student name. Used by the consolidator, which
// needs the full set rather than a page.
func (r *SubmissionRepository) FindByRubric(ctx context.Context, rubricCode, commissionCode string) ([]models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE LOWER(rubric_code) = LOWER($1) AND LOWER(commission_code) = LOWER($2) ORDER BY student_name ASC", submissionColumns)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, rubricCode, commissionCode); err != nil {
		return nil, fmt.Errorf("find submissions by rubric: %w", err)
	}
	return submissions, nil
}

// ExistsByCode checks submission code uniqueness within rubric and commission.
func (r *SubmissionRepository) ExistsByCode(ctx context.Context, rubricCode, commissionCode, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM submissions WHERE LOWER(rubric_code) = LOWER($1) AND LOWER(commission_code) = LOWER($2) AND LOWER(code) = LOWER($3)"
	args := []interface{}{rubricCode, commissionCode, code}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check submission code: %w", err)
	}
	return true, nil
}

// Create persists a new submission record.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	submission.UpdatedAt = now

	const query = `INSERT INTO submissions (id, code, student_name, file_name, storage_path, size_bytes, mime_type, status, grade, summary, rubric_code, commission_code, uploaded_by, created_at, updated_at)
		VALUES (:id, :code, :student_name, :file_name, :storage_path, :size_bytes, :mime_type, :status, :grade, :summary, :rubric_code, :commission_code, :uploaded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// UpdateStatus moves a submission to a new workflow state.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	const query = `UPDATE submissions SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	return nil
}

// SetCorrection records the grading outcome and marks the submission corrected.
func (r *SubmissionRepository) SetCorrection(ctx context.Context, id string, grade *float64, summary string) error {
	const query = `UPDATE submissions SET status = $1, grade = $2, summary = $3, updated_at = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, models.SubmissionCorrected, grade, summary, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set submission correction: %w", err)
	}
	return nil
}

// Delete removes a submission record.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}
