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

type commissionRepository interface {
	List(ctx context.Context, filter models.CommissionFilter) ([]models.Commission, int, error)
	FindByCode(ctx context.Context, universityCode, courseCode, code string) (*models.Commission, error)
	ExistsByCode(ctx context.Context, universityCode, courseCode, code, excludeID string) (bool, error)
	Create(ctx context.Context, commission *models.Commission) error
	Update(ctx context.Context, commission *models.Commission) error
	Delete(ctx context.Context, id string) error
	CountRubrics(ctx context.Context, universityCode, commissionCode string) (int, error)
}

type commissionCourseRepository interface {
	FindByCode(ctx context.Context, universityCode, code string) (*models.Course, error)
}

type commissionCareerRepository interface {
	FindByCode(ctx context.Context, universityCode, facultyCode, code string) (*models.Career, error)
}

// CreateCommissionRequest captures fields for creating commissions. The
// career reference pins the commission into the academic tree; the ancestor
// chain is denormalized from it at creation time.
type CreateCommissionRequest struct {
	Code           string   `json:"commission_id"`
	Name           string   `json:"name" validate:"required"`
	Year           int      `json:"year" validate:"required,min=1900,max=2200"`
	UniversityCode string   `json:"university_id" validate:"required"`
	FacultyCode    string   `json:"faculty_id" validate:"required"`
	CareerCode     string   `json:"career_id" validate:"required"`
	CourseCode     string   `json:"course_id" validate:"required"`
	ProfessorIDs   []string `json:"professor_ids"`
}

// UpdateCommissionRequest modifies commission fields. Identifier and
// ancestry stay fixed; professors and metadata may change.
type UpdateCommissionRequest struct {
	Name         string   `json:"name" validate:"required"`
	Year         int      `json:"year" validate:"required,min=1900,max=2200"`
	ProfessorIDs []string `json:"professor_ids"`
}

// CommissionService handles commission domain workflows.
type CommissionService struct {
	repo      commissionRepository
	courses   commissionCourseRepository
	careers   commissionCareerRepository
	cache     optionsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommissionService creates a new commission service.
func NewCommissionService(repo commissionRepository, courses commissionCourseRepository, careers commissionCareerRepository, cache optionsInvalidator, validate *validator.Validate, logger *zap.Logger) *CommissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommissionService{repo: repo, courses: courses, careers: careers, cache: cache, validator: validate, logger: logger}
}

// List returns paginated commissions, restricted to the caller's scope.
// Professors see only commissions they are assigned to.
func (s *CommissionService) List(ctx context.Context, claims *models.JWTClaims, filter models.CommissionFilter) ([]models.Commission, *models.Pagination, error) {
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
		case models.ScopeCourses:
			filter.ProfessorID = claims.UserID
		}
	}

	commissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list commissions")
	}
	return commissions, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a commission by its identifier within a course.
func (s *CommissionService) Get(ctx context.Context, universityCode, courseCode, code string) (*models.Commission, error) {
	commission, err := s.repo.FindByCode(ctx, universityCode, courseCode, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commission")
	}
	return commission, nil
}

// CheckCode reports whether an identifier is free within a course.
func (s *CommissionService) CheckCode(ctx context.Context, universityCode, courseCode, code string) (bool, error) {
	if !slug.IsValid(code) {
		return false, appErrors.Clone(appErrors.ErrInvalidID, "commission identifier must contain only lowercase letters, digits and hyphens")
	}
	exists, err := s.repo.ExistsByCode(ctx, universityCode, courseCode, code, "")
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check commission identifier")
	}
	return !exists, nil
}

// Create adds a new commission. Both the course and the career must exist
// under the same university; the stored ancestor chain comes from them.
func (s *CommissionService) Create(ctx context.Context, claims *models.JWTClaims, req CreateCommissionRequest) (*models.Commission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commission payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageCommissions {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage commissions")
	}
	if err := requireScope(claims, req.UniversityCode, req.FacultyCode, req.CourseCode); err != nil {
		return nil, err
	}

	course, err := s.courses.FindByCode(ctx, req.UniversityCode, req.CourseCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	career, err := s.careers.FindByCode(ctx, req.UniversityCode, req.FacultyCode, req.CareerCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.Generate(req.Name, 40)
	}
	if !slug.IsValid(code) {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "commission identifier must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsByCode(ctx, course.UniversityCode, course.Code, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check commission identifier")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateID, "commission identifier already in use within the course")
	}

	commission := &models.Commission{
		Code:           code,
		Name:           strings.TrimSpace(req.Name),
		Year:           req.Year,
		CourseCode:     course.Code,
		CareerCode:     career.Code,
		FacultyCode:    career.FacultyCode,
		UniversityCode: course.UniversityCode,
		ProfessorIDs:   req.ProfessorIDs,
	}
	if err := s.repo.Create(ctx, commission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create commission")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return commission, nil
}

// Update modifies a commission's name, year and professor roster.
func (s *CommissionService) Update(ctx context.Context, claims *models.JWTClaims, universityCode, courseCode, code string, req UpdateCommissionRequest) (*models.Commission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commission payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageCommissions {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage commissions")
	}

	commission, err := s.Get(ctx, universityCode, courseCode, code)
	if err != nil {
		return nil, err
	}
	if err := requireScope(claims, commission.UniversityCode, commission.FacultyCode, commission.CourseCode); err != nil {
		return nil, err
	}

	commission.Name = strings.TrimSpace(req.Name)
	commission.Year = req.Year
	commission.ProfessorIDs = req.ProfessorIDs
	if err := s.repo.Update(ctx, commission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update commission")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return commission, nil
}

// Delete removes a commission when it has no rubrics left.
func (s *CommissionService) Delete(ctx context.Context, claims *models.JWTClaims, universityCode, courseCode, code string) error {
	if claims != nil && !models.Capabilities(claims.Role).ManageCommissions {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage commissions")
	}

	commission, err := s.Get(ctx, universityCode, courseCode, code)
	if err != nil {
		return err
	}
	if err := requireScope(claims, commission.UniversityCode, commission.FacultyCode, commission.CourseCode); err != nil {
		return err
	}

	rubrics, err := s.repo.CountRubrics(ctx, commission.UniversityCode, commission.Code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rubrics")
	}
	if rubrics > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "commission still has rubrics")
	}

	if err := s.repo.Delete(ctx, commission.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete commission")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return nil
}
