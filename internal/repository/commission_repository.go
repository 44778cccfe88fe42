package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

// CommissionRepository handles persistence for commissions.
type CommissionRepository struct {
	db *sqlx.DB
}

// NewCommissionRepository creates a new repository instance.
func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

const commissionColumns = "id, code, name, year, course_code, career_code, faculty_code, university_code, professor_ids, created_at, updated_at"

// List returns commissions matching filters with pagination metadata.
func (r *CommissionRepository) List(ctx context.Context, filter models.CommissionFilter) ([]models.Commission, int, error) {
	base := "FROM commissions WHERE 1=1"
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
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(professor_ids)", len(args)+1))
		args = append(args, filter.ProfessorID)
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
		"code":       true,
		"name":       true,
		"year":       true,
		"created_at": true,
		"updated_at": true,
	})
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", commissionColumns, base, sortBy, order, limit, offset)
	var commissions []models.Commission
	if err := r.db.SelectContext(ctx, &commissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list commissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count commissions: %w", err)
	}

	return commissions, total, nil
}

// FindByID returns a commission by row id.
func (r *CommissionRepository) FindByID(ctx context.Context, id string) (*models.Commission, error) {
	query := fmt.Sprintf("SELECT %s FROM commissions WHERE id = $1", commissionColumns)
	var commission models.Commission
	if err := r.db.GetContext(ctx, &commission, query, id); err != nil {
		return nil, err
	}
	return &commission, nil
}

// FindByCode returns a commission by its identifier within a course.
func (r *CommissionRepository) FindByCode(ctx context.Context, universityCode, courseCode, code string) (*models.Commission, error) {
	query := fmt.Sprintf("SELECT %s FROM commissions WHERE LOWER(university_code) = LOWER($1) AND LOWER(course_code) = LOWER($2) AND LOWER(code) = LOWER($3)", commissionColumns)
	var commission models.Commission
	if err := r.db.GetContext(ctx, &commission, query, universityCode, courseCode, code); err != nil {
		return nil, err
	}
	return &commission, nil
}

// ExistsByCode checks code uniqueness within the parent course.
func (r *CommissionRepository) ExistsByCode(ctx context.Context, universityCode, courseCode, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM commissions WHERE LOWER(university_code) = LOWER($1) AND LOWER(course_code) = LOWER($2) AND LOWER(code) = LOWER($3)"
	args := []interface{}{universityCode, courseCode, code}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check commission code: %w", err)
	}
	return true, nil
}

// Create persists a new commission.
func (r *CommissionRepository) Create(ctx context.Context, commission *models.Commission) error {
	if commission.ID == "" {
		commission.ID = uuid.NewString()
	}
	if commission.ProfessorIDs == nil {
		commission.ProfessorIDs = pq.StringArray{}
	}
	now := time.Now().UTC()
	if commission.CreatedAt.IsZero() {
		commission.CreatedAt = now
	}
	commission.UpdatedAt = now

	const query = `INSERT INTO commissions (id, code, name, year, course_code, career_code, faculty_code, university_code, professor_ids, created_at, updated_at)
		VALUES (:id, :code, :name, :year, :course_code, :career_code, :faculty_code, :university_code, :professor_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, commission); err != nil {
		return fmt.Errorf("create commission: %w", err)
	}
	return nil
}

// Update modifies a commission. Code and the whole ancestor chain are
// immutable; name, year and professor assignments are not.
func (r *CommissionRepository) Update(ctx context.Context, commission *models.Commission) error {
	commission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE commissions SET name = :name, year = :year, professor_ids = :professor_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, commission); err != nil {
		return fmt.Errorf("update commission: %w", err)
	}
	return nil
}

// Delete removes a commission record.
func (r *CommissionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM commissions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete commission: %w", err)
	}
	return nil
}

// CountRubrics returns the number of rubrics attached to the commission.
func (r *CommissionRepository) CountRubrics(ctx context.Context, universityCode, commissionCode string) (int, error) {
	const query = `SELECT COUNT(*) FROM rubrics WHERE LOWER(university_code) = LOWER($1) AND LOWER(commission_code) = LOWER($2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, universityCode, commissionCode); err != nil {
		return 0, fmt.Errorf("count rubrics: %w", err)
	}
	return count, nil
}
