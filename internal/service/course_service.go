package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/slug"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByCode(ctx context.Context, universityCode, code string) (*models.Course, error)
	ExistsByCode(ctx context.Context, universityCode, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	CountCommissions(ctx context.Context, universityCode, courseCode string) (int, error)
}

// CreateCourseRequest captures fields for creating courses. Courses hang
// directly off the university; careers come into play at commission level.
type CreateCourseRequest struct {
	Code           string `json:"course_id"`
	Name           string `json:"name" validate:"required"`
	Year           int    `json:"year" validate:"required,min=1900,max=2200"`
	UniversityCode string `json:"university_id" validate:"required"`
}

// UpdateCourseRequest modifies course fields. Year stays editable metadata
// even though it seeds the suggested identifier.
type UpdateCourseRequest struct {
	Name string `json:"name" validate:"required"`
	Year int    `json:"year" validate:"required,min=1900,max=2200"`
}

// CourseService handles course domain workflows.
type CourseService struct {
	repo         courseRepository
	universities facultyUniversityRepository
	cache        optionsInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCourseService creates a new course service.
func NewCourseService(repo courseRepository, universities facultyUniversityRepository, cache optionsInvalidator, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, universities: universities, cache: cache, validator: validate, logger: logger}
}

// List returns paginated courses, restricted to the caller's scope.
func (s *CourseService) List(ctx context.Context, claims *models.JWTClaims, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if claims != nil {
		caps := models.Capabilities(claims.Role)
		if caps.Scope == models.ScopeUniversity || caps.Scope == models.ScopeFaculty {
			if claims.UniversityID != nil {
				filter.UniversityCode = *claims.UniversityID
			}
		}
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a course by its identifier within a university.
func (s *CourseService) Get(ctx context.Context, universityCode, code string) (*models.Course, error) {
	course, err := s.repo.FindByCode(ctx, universityCode, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// SuggestCode derives a year-prefixed identifier like "2025-programacion-1".
func (s *CourseService) SuggestCode(year int, name string) string {
	return slug.SuggestCourseID(year, name)
}

// CheckCode reports whether an identifier is free within a university.
func (s *CourseService) CheckCode(ctx context.Context, universityCode, code string) (bool, error) {
	if !slug.IsValid(code) {
		return false, appErrors.Clone(appErrors.ErrInvalidID, "course identifier must contain only lowercase letters, digits and hyphens")
	}
	exists, err := s.repo.ExistsByCode(ctx, universityCode, code, "")
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course identifier")
	}
	return !exists, nil
}

// Create adds a new course under an existing university.
func (s *CourseService) Create(ctx context.Context, claims *models.JWTClaims, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageCourses {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage courses")
	}
	if err := requireScope(claims, req.UniversityCode, "", ""); err != nil {
		return nil, err
	}

	university, err := s.universities.FindByCode(ctx, req.UniversityCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university")
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.SuggestCourseID(req.Year, req.Name)
	}
	if !slug.IsValid(code) {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "course identifier must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsByCode(ctx, university.Code, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course identifier")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateID, "course identifier already in use within the university")
	}

	course := &models.Course{
		Code:           code,
		Name:           strings.TrimSpace(req.Name),
		Year:           req.Year,
		UniversityCode: university.Code,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return course, nil
}

// Update modifies a course's name and year.
func (s *CourseService) Update(ctx context.Context, claims *models.JWTClaims, universityCode, code string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageCourses {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage courses")
	}
	if err := requireScope(claims, universityCode, "", ""); err != nil {
		return nil, err
	}

	course, err := s.Get(ctx, universityCode, code)
	if err != nil {
		return nil, err
	}

	course.Name = strings.TrimSpace(req.Name)
	course.Year = req.Year
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return course, nil
}

// Delete removes a course when no commissions reference it.
func (s *CourseService) Delete(ctx context.Context, claims *models.JWTClaims, universityCode, code string) error {
	if claims != nil && !models.Capabilities(claims.Role).ManageCourses {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage courses")
	}
	if err := requireScope(claims, universityCode, "", ""); err != nil {
		return err
	}

	course, err := s.Get(ctx, universityCode, code)
	if err != nil {
		return err
	}

	commissions, err := s.repo.CountCommissions(ctx, course.UniversityCode, course.Code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count commissions")
	}
	if commissions > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "course still has commissions")
	}

	if err := s.repo.Delete(ctx, course.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return nil
}
