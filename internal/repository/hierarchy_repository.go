package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

// HierarchyRepository serves the id/code/name projections behind cascading
// selects. It reads across the hierarchy tables directly instead of going
// through the per-entity repositories.
type HierarchyRepository struct {
	db *sqlx.DB
}

// NewHierarchyRepository creates a new repository instance.
func NewHierarchyRepository(db *sqlx.DB) *HierarchyRepository {
	return &HierarchyRepository{db: db}
}

// UniversityOptions returns every university as an option.
func (r *HierarchyRepository) UniversityOptions(ctx context.Context) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM universities ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("university options: %w", err)
	}
	return options, nil
}

// FacultyOptions returns faculties under one university.
func (r *HierarchyRepository) FacultyOptions(ctx context.Context, universityCode string) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM faculties WHERE LOWER(university_code) = LOWER($1) ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query, universityCode); err != nil {
		return nil, fmt.Errorf("faculty options: %w", err)
	}
	return options, nil
}

// CareerOptions returns careers under one faculty.
func (r *HierarchyRepository) CareerOptions(ctx context.Context, universityCode, facultyCode string) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM careers WHERE LOWER(university_code) = LOWER($1) AND LOWER(faculty_code) = LOWER($2) ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query, universityCode, facultyCode); err != nil {
		return nil, fmt.Errorf("career options: %w", err)
	}
	return options, nil
}

// CourseOptions returns courses under one university.
func (r *HierarchyRepository) CourseOptions(ctx context.Context, universityCode string) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM courses WHERE LOWER(university_code) = LOWER($1) ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query, universityCode); err != nil {
		return nil, fmt.Errorf("course options: %w", err)
	}
	return options, nil
}

// CommissionOptions returns commissions under one course.
func (r *HierarchyRepository) CommissionOptions(ctx context.Context, universityCode, courseCode string) ([]models.Option, error) {
	const query = `SELECT id, code, name FROM commissions WHERE LOWER(university_code) = LOWER($1) AND LOWER(course_code) = LOWER($2) ORDER BY name ASC`
	var options []models.Option
	if err := r.db.SelectContext(ctx, &options, query, universityCode, courseCode); err != nil {
		return nil, fmt.Errorf("commission options: %w", err)
	}
	return options, nil
}
