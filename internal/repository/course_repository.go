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

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching filters with pagination metadata.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.UniversityCode != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(university_code) = LOWER($%d)", len(args)+1))
		args = append(args, filter.UniversityCode)
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

	query := fmt.Sprintf("SELECT id, code, name, year, university_code, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, limit, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// FindByID returns a course by row id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, year, university_code, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByCode returns a course by its identifier within a university.
func (r *CourseRepository) FindByCode(ctx context.Context, universityCode, code string) (*models.Course, error) {
	const query = `SELECT id, code, name, year, university_code, created_at, updated_at FROM courses WHERE LOWER(university_code) = LOWER($1) AND LOWER(code) = LOWER($2)`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, universityCode, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByCode checks code uniqueness within the parent university.
func (r *CourseRepository) ExistsByCode(ctx context.Context, universityCode, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE LOWER(university_code) = LOWER($1) AND LOWER(code) = LOWER($2)"
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
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, name, year, university_code, created_at, updated_at) VALUES (:id, :code, :name, :year, :university_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies a course; code and university are immutable, year is not.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, year = :year, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course record.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// CountCommissions returns commissions referencing the course.
func (r *CourseRepository) CountCommissions(ctx context.Context, universityCode, courseCode string) (int, error) {
	const query = `SELECT COUNT(*) FROM commissions WHERE LOWER(university_code) = LOWER($1) AND LOWER(course_code) = LOWER($2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, universityCode, courseCode); err != nil {
		return 0, fmt.Errorf("count commissions: %w", err)
	}
	return count, nil
}

// ListOptions returns the dropdown projection for a university.
func (r *CourseRepository) ListOptions(ctx context.Context, universityCode string) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM courses WHERE LOWER(university_code) = LOWER($1) ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query, universityCode); err != nil {
		return nil, fmt.Errorf("list course options: %w", err)
	}
	return options, nil
}
