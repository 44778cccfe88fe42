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

type careerRepository interface {
	List(ctx context.Context, filter models.CareerFilter) ([]models.Career, int, error)
	FindByCode(ctx context.Context, universityCode, facultyCode, code string) (*models.Career, error)
	ExistsByCode(ctx context.Context, universityCode, facultyCode, code, excludeID string) (bool, error)
	Create(ctx context.Context, career *models.Career) error
	Update(ctx context.Context, career *models.Career) error
	Delete(ctx context.Context, id string) error
	CountCommissions(ctx context.Context, universityCode, careerCode string) (int, error)
}

type careerFacultyRepository interface {
	FindByCode(ctx context.Context, universityCode, code string) (*models.Faculty, error)
}

// CreateCareerRequest captures fields for creating careers.
type CreateCareerRequest struct {
	Code           string `json:"career_id"`
	Name           string `json:"name" validate:"required"`
	UniversityCode string `json:"university_id" validate:"required"`
	FacultyCode    string `json:"faculty_id" validate:"required"`
}

// UpdateCareerRequest renames a career; identifier and ancestry are fixed.
type UpdateCareerRequest struct {
	Name string `json:"name" validate:"required"`
}

// CareerService handles career domain workflows.
type CareerService struct {
	repo      careerRepository
	faculties careerFacultyRepository
	cache     optionsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCareerService creates a new career service.
func NewCareerService(repo careerRepository, faculties careerFacultyRepository, cache optionsInvalidator, validate *validator.Validate, logger *zap.Logger) *CareerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CareerService{repo: repo, faculties: faculties, cache: cache, validator: validate, logger: logger}
}

// List returns paginated careers, restricted to the caller's scope.
func (s *CareerService) List(ctx context.Context, claims *models.JWTClaims, filter models.CareerFilter) ([]models.Career, *models.Pagination, error) {
	if claims != nil {
		caps := models.Capabilities(claims.Role)
		switch caps.Scope {
		case models.ScopeUniversity:
			if claims.UniversityID != nil {
				filter.UniversityCode = *claims.UniversityID
			}
		case models.ScopeFaculty:
			if claims.UniversityID != nil {
				filter.UniversityCode = *claims.UniversityID
			}
			if claims.FacultyID != nil {
				filter.FacultyCode = *claims.FacultyID
			}
		}
	}

	careers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list careers")
	}
	return careers, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a career by its identifier within a faculty.
func (s *CareerService) Get(ctx context.Context, universityCode, facultyCode, code string) (*models.Career, error) {
	career, err := s.repo.FindByCode(ctx, universityCode, facultyCode, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}
	return career, nil
}

// CheckCode reports whether an identifier is free within a faculty.
func (s *CareerService) CheckCode(ctx context.Context, universityCode, facultyCode, code string) (bool, error) {
	if !slug.IsValid(code) {
		return false, appErrors.Clone(appErrors.ErrInvalidID, "career identifier must contain only lowercase letters, digits and hyphens")
	}
	exists, err := s.repo.ExistsByCode(ctx, universityCode, facultyCode, code, "")
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check career identifier")
	}
	return !exists, nil
}

// Create adds a new career under an existing faculty.
func (s *CareerService) Create(ctx context.Context, claims *models.JWTClaims, req CreateCareerRequest) (*models.Career, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid career payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageCareers {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage careers")
	}
	if err := requireScope(claims, req.UniversityCode, req.FacultyCode, ""); err != nil {
		return nil, err
	}

	faculty, err := s.faculties.FindByCode(ctx, req.UniversityCode, req.FacultyCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.Generate(req.Name, 40)
	}
	if !slug.IsValid(code) {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "career identifier must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsByCode(ctx, faculty.UniversityCode, faculty.Code, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check career identifier")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateID, "career identifier already in use within the faculty")
	}

	career := &models.Career{
		Code:           code,
		Name:           strings.TrimSpace(req.Name),
		FacultyCode:    faculty.Code,
		UniversityCode: faculty.UniversityCode,
	}
	if err := s.repo.Create(ctx, career); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create career")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return career, nil
}

// Update renames a career.
func (s *CareerService) Update(ctx context.Context, claims *models.JWTClaims, universityCode, facultyCode, code string, req UpdateCareerRequest) (*models.Career, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid career payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageCareers {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage careers")
	}
	if err := requireScope(claims, universityCode, facultyCode, ""); err != nil {
		return nil, err
	}

	career, err := s.Get(ctx, universityCode, facultyCode, code)
	if err != nil {
		return nil, err
	}

	career.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Update(ctx, career); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update career")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return career, nil
}

// Delete removes a career when no commissions reference it.
func (s *CareerService) Delete(ctx context.Context, claims *models.JWTClaims, universityCode, facultyCode, code string) error {
	if claims != nil && !models.Capabilities(claims.Role).ManageCareers {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage careers")
	}
	if err := requireScope(claims, universityCode, facultyCode, ""); err != nil {
		return err
	}

	career, err := s.Get(ctx, universityCode, facultyCode, code)
	if err != nil {
		return err
	}

	commissions, err := s.repo.CountCommissions(ctx, career.UniversityCode, career.Code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count commissions")
	}
	if commissions > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "career still has commissions")
	}

	if err := s.repo.Delete(ctx, career.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete career")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return nil
}
