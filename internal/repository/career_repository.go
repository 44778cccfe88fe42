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

// CareerRepository handles persistence for careers.
type CareerRepository struct {
	db *sqlx.DB
}

// NewCareerRepository creates a new repository instance.
func NewCareerRepository(db *sqlx.DB) *CareerRepository {
	return &CareerRepository{db: db}
}

// List returns careers matching filters with pagination metadata.
func (r *CareerRepository) List(ctx context.Context, filter models.CareerFilter) ([]models.Career, int, error) {
	base := "FROM careers WHERE 1=1"
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
		"created_at": true,
		"updated_at": true,
	})
	limit, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT id, code, name, faculty_code, university_code, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, limit, offset)
	var careers []models.Career
	if err := r.db.SelectContext(ctx, &careers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list careers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count careers: %w", err)
	}

	return careers, total, nil
}

// FindByID returns a career by row id.
func (r *CareerRepository) FindByID(ctx context.Context, id string) (*models.Career, error) {
	const query = `SELECT id, code, name, faculty_code, university_code, created_at, updated_at FROM careers WHERE id = $1`
	var career models.Career
	if err := r.db.GetContext(ctx, &career, query, id); err != nil {
		return nil, err
	}
	return &career, nil
}

// FindByCode returns a career by its identifier within a faculty.
func (r *CareerRepository) FindByCode(ctx context.Context, universityCode, facultyCode, code string) (*models.Career, error) {
	const query = `SELECT id, code, name, faculty_code, university_code, created_at, updated_at FROM careers WHERE LOWER(university_code) = LOWER($1) AND LOWER(faculty_code) = LOWER($2) AND LOWER(code) = LOWER($3)`
	var career models.Career
	if err := r.db.GetContext(ctx, &career, query, universityCode, facultyCode, code); err != nil {
		return nil, err
	}
	return &career, nil
}

// ExistsByCode checks code uniqueness within the parent faculty.
func (r *CareerRepository) ExistsByCode(ctx context.Context, universityCode, facultyCode, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM careers WHERE LOWER(university_code) = LOWER($1) AND LOWER(faculty_code) = LOWER($2) AND LOWER(code) = LOWER($3)"
	args := []interface{}{universityCode, facultyCode, code}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check career code: %w", err)
	}
	return true, nil
}

// Create persists a new career.
func (r *CareerRepository) Create(ctx context.Context, career *models.Career) error {
	if career.ID == "" {
		career.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if career.CreatedAt.IsZero() {
		career.CreatedAt = now
	}
	career.UpdatedAt = now

	const query = `INSERT INTO careers (id, code, name, faculty_code, university_code, created_at, updated_at) VALUES (:id, :code, :name, :faculty_code, :university_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, career); err != nil {
		return fmt.Errorf("create career: %w", err)
	}
	return nil
}

// Update modifies a career; code and ancestry are immutable.
func (r *CareerRepository) Update(ctx context.Context, career *models.Career) error {
	career.UpdatedAt = time.Now().UTC()
	const query = `UPDATE careers SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, career); err != nil {
		return fmt.Errorf("update career: %w", err)
	}
	return nil
}

// Delete removes a career record.
func (r *CareerRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM careers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete career: %w", err)
	}
	return nil
}

// CountCommissions returns the number of commissions referencing the career.
func (r *CareerRepository) CountCommissions(ctx context.Context, universityCode, careerCode string) (int, error) {
	const query = `SELECT COUNT(*) FROM commissions WHERE LOWER(university_code) = LOWER($1) AND LOWER(career_code) = LOWER($2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, universityCode, careerCode); err != nil {
		return 0, fmt.Errorf("count commissions: %w", err)
	}
	return count, nil
}

// ListOptions returns the dropdown projection for a faculty.
func (r *CareerRepository) ListOptions(ctx context.Context, universityCode, facultyCode string) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM careers WHERE LOWER(university_code) = LOWER($1) AND LOWER(faculty_code) = LOWER($2) ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query, universityCode, facultyCode); err != nil {
		return nil, fmt.Errorf("list career options: %w", err)
	}
	return options, nil
}
