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

// UniversityRepository handles persistence for universities.
type UniversityRepository struct {
	db *sqlx.DB
}

// NewUniversityRepository creates a new repository instance.
func NewUniversityRepository(db *sqlx.DB) *UniversityRepository {
	return &UniversityRepository{db: db}
}

// List returns universities matching filters with pagination metadata.
func (r *UniversityRepository) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error) {
	base := "FROM universities WHERE 1=1"
	var conditions []string
	var args []interface{}

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

	query := fmt.Sprintf("SELECT id, code, name, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, limit, offset)
	var universities []models.University
	if err := r.db.SelectContext(ctx, &universities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list universities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count universities: %w", err)
	}

	return universities, total, nil
}

// FindByID returns a university by row id.
func (r *UniversityRepository) FindByID(ctx context.Context, id string) (*models.University, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM universities WHERE id = $1`
	var university models.University
	if err := r.db.GetContext(ctx, &university, query, id); err != nil {
		return nil, err
	}
	return &university, nil
}

// FindByCode returns a university by its human-readable identifier.
func (r *UniversityRepository) FindByCode(ctx context.Context, code string) (*models.University, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM universities WHERE LOWER(code) = LOWER($1)`
	var university models.University
	if err := r.db.GetContext(ctx, &university, query, code); err != nil {
		return nil, err
	}
	return &university, nil
}

// ExistsByCode checks code uniqueness (universities are globally scoped).
func (r *UniversityRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM universities WHERE LOWER(code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check university code: %w", err)
	}
	return true, nil
}

// Create persists a new university.
func (r *UniversityRepository) Create(ctx context.Context, university *models.University) error {
	if university.ID == "" {
		university.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if university.CreatedAt.IsZero() {
		university.CreatedAt = now
	}
	university.UpdatedAt = now

	const query = `INSERT INTO universities (id, code, name, created_at, updated_at) VALUES (:id, :code, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return fmt.Errorf("create university: %w", err)
	}
	return nil
}

// Update modifies a university. The code column is deliberately absent:
// identifiers are immutable after creation.
func (r *UniversityRepository) Update(ctx context.Context, university *models.University) error {
	university.UpdatedAt = time.Now().UTC()
	const query = `UPDATE universities SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return fmt.Errorf("update university: %w", err)
	}
	return nil
}

// Delete removes a university record.
func (r *UniversityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM universities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete university: %w", err)
	}
	return nil
}

// CountChildren returns how many faculties and courses hang off the
// university, blocking deletion while descendants exist.
func (r *UniversityRepository) CountChildren(ctx context.Context, code string) (int, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM faculties WHERE LOWER(university_code) = LOWER($1)) +
		(SELECT COUNT(*) FROM courses WHERE LOWER(university_code) = LOWER($1))`
	var count int
	if err := r.db.GetContext(ctx, &count, query, code); err != nil {
		return 0, fmt.Errorf("count university children: %w", err)
	}
	return count, nil
}

// ListOptions returns the id/code/name projection for dropdowns.
func (r *UniversityRepository) ListOptions(ctx context.Context) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM universities ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("list university options: %w", err)
	}
	return options, nil
}
