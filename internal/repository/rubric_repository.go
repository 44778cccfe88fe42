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

// RubricRepository handles persistence for rubrics.
type RubricRepository struct {
	db *sqlx.DB
}

// NewRubricRepository creates a new repository instance.
func NewRubricRepository(db *sqlx.DB) *RubricRepository {
	return &RubricRepository{db: db}
}

const rubricColumns = "id, code, name, rubric_type, rubric_number, year, criteria, source, commission_code, course_code, career_code, faculty_code, university_code, created_at, updated_at"

// List returns rubrics matching filters with pagination metadata.
func (r *RubricRepository) List(ctx context.Context, filter models.RubricFilter) ([]models.Rubric, int, error) {
	base := "FROM rubrics WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.UniversityCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(university_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.UniversityCode)
	}
	if filter.FacultyCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(faculty_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.FacultyCode)
	}
	if filter.CareerCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(career_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.CareerCode)
	}
	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(course_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.CourseCode)
	}
	if filter.CommissionCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(commission_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.CommissionCode)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("rubric_type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy, order := sanitizeSort(filter.SortBy, filter.SortOrder, map[string]bool{
		"code":          true,
		"name":          true,
		"rubric_type":   true,
		"rubric_number": true,
		"year":          true,
		"created_at":    true,
		"updated_at":    true,
	})
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", rubricColumns, base, sortBy, order, limit, offset)
	var rubrics []models.Rubric
	if err := r.db.SelectContext(ctx, &rubrics, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rubrics: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rubrics: %w", err)
	}

	return rubrics, total, nil
}

// FindByID returns a rubric by row id.
func (r *RubricRepository) FindByID(ctx context.Context, id string) (*models.Rubric, error) {
	query := fmt.Sprintf("SELECT %s FROM rubrics WHERE id = $1", rubricColumns)
	var rubric models.Rubric
	if err := r.db.GetContext(ctx, &rubric, query, id); err != nil {
		return nil, err
	}
	return &rubric, nil
}

// FindByCode returns a rubric by its identifier within a commission.
func (r *RubricRepository) FindByCode(ctx context.Context, universityCode, commissionCode, code string) (*models.Rubric, error) {
	query := fmt.Sprintf("SELECT %s FROM rubrics WHERE LOWER(university_code) = LOWER($1) AND LOWER(commission_code) = LOWER($2) AND LOWER(code) = LOWER($3)", rubricColumns)
	var rubric models.Rubric
	if err := r.db.GetContext(ctx, &rubric, query, universityCode, commissionCode, code); err != nil {
		return nil, err
	}
	return &rubric, nil
}

// ExistsByCode checks code uniqueness within the parent commission.
func (r *RubricRepository) ExistsByCode(ctx context.Context, universityCode, commissionCode, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM rubrics WHERE LOWER(university_code) = LOWER($1) AND LOWER(commission_code) = LOWER($2) AND LOWER(code) = LOWER($3)"
	args := []interface{}{universityCode, commissionCode, code}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check rubric code: %w", err)
	}
	return true, nil
}

// Create persists a new rubric.
func (r *RubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	if rubric.ID == "" {
		rubric.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rubric.CreatedAt.IsZero() {
		rubric.CreatedAt = now
	}
	rubric.UpdatedAt = now

	const query = `INSERT INTO rubrics (id, code, name, rubric_type, rubric_number, year, criteria, source, commission_code, course_code, career_code, faculty_code, university_code, created_at, updated_at)
		VALUES (:id, :code, :name, :rubric_type, :rubric_number, :year, :criteria, :source, :commission_code, :course_code, :career_code, :faculty_code, :university_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rubric); err != nil {
		return fmt.Errorf("create rubric: %w", err)
	}
	return nil
}

// Update modifies a rubric. Code and ancestry are immutable; the grading
// criteria blob, name, type, number and year are editable.
func (r *RubricRepository) Update(ctx context.Context, rubric *models.Rubric) error {
	rubric.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rubrics SET name = :name, rubric_type = :rubric_type, rubric_number = :rubric_number, year = :year, criteria = :criteria, source = :source, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rubric); err != nil {
		return fmt.Errorf("update rubric: %w", err)
	}
	return nil
}

// Delete removes a rubric record.
func (r *RubricRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rubrics WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete rubric: %w", err)
	}
	return nil
}

// CountSubmissions returns the number of submissions graded by the rubric.
func (r *RubricRepository) CountSubmissions(ctx context.Context, rubricCode, commissionCode string) (int, error) {
	const query = `SELECT COUNT(*) FROM submissions WHERE LOWER(rubric_code) = LOWER($1) AND LOWER(commission_code) = LOWER($2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, rubricCode, commissionCode); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}
