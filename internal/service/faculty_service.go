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

type facultyRepository interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
	FindByCode(ctx context.Context, universityCode, code string) (*models.Faculty, error)
	ExistsByCode(ctx context.Context, universityCode, code, excludeID string) (bool, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	Update(ctx context.Context, faculty *models.Faculty) error
	Delete(ctx context.Context, id string) error
	CountCareers(ctx context.Context, universityCode, code string) (int, error)
}

type facultyUniversityRepository interface {
	FindByCode(ctx context.Context, code string) (*models.University, error)
}

// CreateFacultyRequest captures fields for creating faculties.
type CreateFacultyRequest struct {
	Code           string `json:"faculty_id"`
	Name           string `json:"name" validate:"required"`
	UniversityCode string `json:"university_id" validate:"required"`
}

// UpdateFacultyRequest renames a faculty; identifier and parent are fixed.
type UpdateFacultyRequest struct {
	Name string `json:"name" validate:"required"`
}

// FacultyService handles faculty domain workflows.
type FacultyService struct {
	repo         facultyRepository
	universities facultyUniversityRepository
	cache        optionsInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewFacultyService creates a new faculty service.
func NewFacultyService(repo facultyRepository, universities facultyUniversityRepository, cache optionsInvalidator, validate *validator.Validate, logger *zap.Logger) *FacultyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, universities: universities, cache: cache, validator: validate, logger: logger}
}

// List returns paginated faculties, restricted to the caller's scope.
func (s *FacultyService) List(ctx context.Context, claims *models.JWTClaims, filter models.FacultyFilter) ([]models.Faculty, *models.Pagination, error) {
	if claims != nil {
		caps := models.Capabilities(claims.Role)
		if caps.Scope == models.ScopeUniversity || caps.Scope == models.ScopeFaculty {
			if claims.UniversityID != nil {
				filter.UniversityCode = *claims.UniversityID
			}
		}
	}

	faculties, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculties")
	}
	return faculties, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a faculty by its identifier within a university.
func (s *FacultyService) Get(ctx context.Context, universityCode, code string) (*models.Faculty, error) {
	faculty, err := s.repo.FindByCode(ctx, universityCode, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// CheckCode reports whether an identifier is free within a university.
func (s *FacultyService) CheckCode(ctx context.Context, universityCode, code string) (bool, error) {
	if !slug.IsValid(code) {
		return false, appErrors.Clone(appErrors.ErrInvalidID, "faculty identifier must contain only lowercase letters, digits and hyphens")
	}
	exists, err := s.repo.ExistsByCode(ctx, universityCode, code, "")
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check faculty identifier")
	}
	return !exists, nil
}

// Create adds a new faculty under an existing university.
func (s *FacultyService) Create(ctx context.Context, claims *models.JWTClaims, req CreateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageFaculties {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage faculties")
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
		code = slug.Generate(req.Name, 40)
	}
	if !slug.IsValid(code) {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "faculty identifier must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsByCode(ctx, university.Code, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check faculty identifier")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateID, "faculty identifier already in use within the university")
	}

	faculty := &models.Faculty{
		Code:           code,
		Name:           strings.TrimSpace(req.Name),
		UniversityCode: university.Code,
	}
	if err := s.repo.Create(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return faculty, nil
}

// Update renames a faculty.
func (s *FacultyService) Update(ctx context.Context, claims *models.JWTClaims, universityCode, code string, req UpdateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageFaculties {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage faculties")
	}
	if err := requireScope(claims, universityCode, "", ""); err != nil {
		return nil, err
	}

	faculty, err := s.Get(ctx, universityCode, code)
	if err != nil {
		return nil, err
	}

	faculty.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Update(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faculty")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return faculty, nil
}

// Delete removes a faculty when it has no careers left.
func (s *FacultyService) Delete(ctx context.Context, claims *models.JWTClaims, universityCode, code string) error {
	if claims != nil && !models.Capabilities(claims.Role).ManageFaculties {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage faculties")
	}
	if err := requireScope(claims, universityCode, "", ""); err != nil {
		return err
	}

	faculty, err := s.Get(ctx, universityCode, code)
	if err != nil {
		return err
	}

	careers, err := s.repo.CountCareers(ctx, faculty.UniversityCode, faculty.Code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count careers")
	}
	if careers > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "faculty still has careers")
	}

	if err := s.repo.Delete(ctx, faculty.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return nil
}
