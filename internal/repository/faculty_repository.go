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

// FacultyRepository handles persistence for faculties.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new repository instance.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// List returns faculties matching filters with pagination metadata.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	base := "FROM faculties WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.UniversityCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(university_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.UniversityCode)
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

	query := fmt.Sprintf("SELECT id, code, name, university_code, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, limit, offset)
	var faculties []models.Faculty
	if err := r.db.SelectContext(ctx, &faculties, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculties: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculties: %w", err)
	}

	return faculties, total, nil
}

// FindByID returns a faculty by row id.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	const query = `SELECT id, code, name, university_code, created_at, updated_at FROM faculties WHERE id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// FindByCode returns a faculty by its identifier within a university.
func (r *FacultyRepository) FindByCode(ctx context.Context, universityCode, code string) (*models.Faculty, error) {
	const query = `SELECT id, code, name, university_code, created_at, updated_at FROM faculties WHERE LOWER(university_code) = LOWER($1) AND LOWER(code) = LOWER($2)`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, universityCode, code); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// ExistsByCode checks code uniqueness within the parent university.
func (r *FacultyRepository) ExistsByCode(ctx context.Context, universityCode, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM faculties WHERE LOWER(university_code) = LOWER($1) AND LOWER(code) = LOWER($2)"
	args := []interface{}{universityCode, code}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check faculty code: %w", err)
	}
	return true, nil
}

// Create persists a new faculty.
func (r *FacultyRepository) Create(ctx context.Context, faculty *models.Faculty) error {
	if faculty.ID == "" {
		faculty.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = now
	}
	faculty.UpdatedAt = now

	const query = `INSERT INTO faculties (id, code, name, university_code, created_at, updated_at) VALUES (:id, :code, :name, :university_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// Update modifies a faculty; code and university are immutable.
func (r *FacultyRepository) Update(ctx context.Context, faculty *models.Faculty) error {
	faculty.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faculties SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	return nil
}

// Delete removes a faculty record.
func (r *FacultyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM faculties WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete faculty: %w", err)
	}
	return nil
}

// CountCareers returns the number of careers under the faculty.
func (r *FacultyRepository) CountCareers(ctx context.Context, universityCode, code string) (int, error) {
	const query = `SELECT COUNT(*) FROM careers WHERE LOWER(university_code) = LOWER($1) AND LOWER(faculty_code) = LOWER($2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, universityCode, code); err != nil {
		return 0, fmt.Errorf("count careers: %w", err)
	}
	return count, nil
}

// ListOptions returns the dropdown projection for one university.
func (r *FacultyRepository) ListOptions(ctx context.Context, universityCode string) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM faculties WHERE LOWER(university_code) = LOWER($1) ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query, universityCode); err != nil {
		return nil, fmt.Errorf("list faculty options: %w", err)
	}
	return options, nil
}
