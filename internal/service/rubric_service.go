package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/slug"
)

type rubricRepository interface {
	List(ctx context.Context, filter models.RubricFilter) ([]models.Rubric, int, error)
	FindByCode(ctx context.Context, universityCode, commissionCode, code string) (*models.Rubric, error)
	ExistsByCode(ctx context.Context, universityCode, commissionCode, code, excludeID string) (bool, error)
	Create(ctx context.Context, rubric *models.Rubric) error
	Update(ctx context.Context, rubric *models.Rubric) error
	Delete(ctx context.Context, id string) error
	CountSubmissions(ctx context.Context, rubricCode, commissionCode string) (int, error)
}

type rubricCommissionRepository interface {
	FindByCode(ctx context.Context, universityCode, courseCode, code string) (*models.Commission, error)
}

// CreateRubricRequest captures fields for creating rubrics. Criteria is an
// opaque JSON document validated for well-formedness only.
type CreateRubricRequest struct {
	Code           string          `json:"rubric_id"`
	Name           string          `json:"name" validate:"required"`
	Type           string          `json:"rubric_type" validate:"required"`
	Number         int             `json:"rubric_number" validate:"min=0"`
	Year           int             `json:"year" validate:"required,min=1900,max=2200"`
	Criteria       json.RawMessage `json:"rubric_json" validate:"required"`
	Source         string          `json:"source"`
	UniversityCode string          `json:"university_id" validate:"required"`
	CourseCode     string          `json:"course_id" validate:"required"`
	CommissionCode string          `json:"commission_id" validate:"required"`
}

// UpdateRubricRequest modifies rubric fields. Identifier and ancestry are
// fixed.
type UpdateRubricRequest struct {
	Name     string          `json:"name" validate:"required"`
	Type     string          `json:"rubric_type" validate:"required"`
	Number   int             `json:"rubric_number" validate:"min=0"`
	Year     int             `json:"year" validate:"required,min=1900,max=2200"`
	Criteria json.RawMessage `json:"rubric_json" validate:"required"`
	Source   string          `json:"source"`
}

// RubricService handles rubric domain workflows.
type RubricService struct {
	repo        rubricRepository
	commissions rubricCommissionRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRubricService creates a new rubric service.
func NewRubricService(repo rubricRepository, commissions rubricCommissionRepository, validate *validator.Validate, logger *zap.Logger) *RubricService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RubricService{repo: repo, commissions: commissions, validator: validate, logger: logger}
}

// List returns paginated rubrics, restricted to the caller's scope.
func (s *RubricService) List(ctx context.Context, claims *models.JWTClaims, filter models.RubricFilter) ([]models.Rubric, *models.Pagination, error) {
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

	rubrics, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rubrics")
	}
	return rubrics, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a rubric by its identifier within a commission.
func (s *RubricService) Get(ctx context.Context, universityCode, commissionCode, code string) (*models.Rubric, error) {
	rubric, err := s.repo.FindByCode(ctx, universityCode, commissionCode, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rubric not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric")
	}
	return rubric, nil
}

// SuggestCode derives an identifier from the evaluation type, number and
// year, e.g. "tp-1-2025" or "final-2025".
func (s *RubricService) SuggestCode(rubricType string, number, year int) string {
	if number > 0 {
		return fmt.Sprintf("%s-%d-%d", rubricType, number, year)
	}
	return fmt.Sprintf("%s-%d", rubricType, year)
}

// CheckCode reports whether an identifier is free within a commission.
func (s *RubricService) CheckCode(ctx context.Context, universityCode, commissionCode, code string) (bool, error) {
	if !slug.IsValid(code) {
		return false, appErrors.Clone(appErrors.ErrInvalidID, "rubric identifier must contain only lowercase letters, digits and hyphens")
	}
	exists, err := s.repo.ExistsByCode(ctx, universityCode, commissionCode, code, "")
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check rubric identifier")
	}
	return !exists, nil
}

// Create adds a new rubric under an existing commission.
func (s *RubricService) Create(ctx context.Context, claims *models.JWTClaims, req CreateRubricRequest) (*models.Rubric, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rubric payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageRubrics {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage rubrics")
	}

	rubricType := models.RubricType(req.Type)
	if !models.ValidRubricType(rubricType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown rubric type")
	}
	if !json.Valid(req.Criteria) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rubric criteria is not valid JSON")
	}

	source := models.RubricSource(req.Source)
	if source == "" {
		source = models.RubricSourceJSON
	}
	if source != models.RubricSourceJSON && source != models.RubricSourcePDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown rubric source")
	}

	commission, err := s.commissions.FindByCode(ctx, req.UniversityCode, req.CourseCode, req.CommissionCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load commission")
	}
	if err := requireScope(claims, commission.UniversityCode, commission.FacultyCode, commission.CourseCode); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = s.SuggestCode(req.Type, req.Number, req.Year)
	}
	if !slug.IsValid(code) {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "rubric identifier must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsByCode(ctx, commission.UniversityCode, commission.Code, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check rubric identifier")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateID, "rubric identifier already in use within the commission")
	}

	rubric := &models.Rubric{
		Code:           code,
		Name:           strings.TrimSpace(req.Name),
		Type:           rubricType,
		Number:         req.Number,
		Year:           req.Year,
		Criteria:       req.Criteria,
		Source:         source,
		CommissionCode: commission.Code,
		CourseCode:     commission.CourseCode,
		CareerCode:     commission.CareerCode,
		FacultyCode:    commission.FacultyCode,
		UniversityCode: commission.UniversityCode,
	}
	if err := s.repo.Create(ctx, rubric); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rubric")
	}
	return rubric, nil
}

// Update modifies a rubric's metadata and grading criteria.
func (s *RubricService) Update(ctx context.Context, claims *models.JWTClaims, universityCode, commissionCode, code string, req UpdateRubricRequest) (*models.Rubric, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rubric payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageRubrics {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage rubrics")
	}

	rubricType := models.RubricType(req.Type)
	if !models.ValidRubricType(rubricType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown rubric type")
	}
	if !json.Valid(req.Criteria) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rubric criteria is not valid JSON")
	}

	rubric, err := s.Get(ctx, universityCode, commissionCode, code)
	if err != nil {
		return nil, err
	}
	if err := requireScope(claims, rubric.UniversityCode, rubric.FacultyCode, rubric.CourseCode); err != nil {
		return nil, err
	}

	source := models.RubricSource(req.Source)
	if source == "" {
		source = rubric.Source
	}
	if source != models.RubricSourceJSON && source != models.RubricSourcePDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown rubric source")
	}

	rubric.Name = strings.TrimSpace(req.Name)
	rubric.Type = rubricType
	rubric.Number = req.Number
	rubric.Year = req.Year
	rubric.Criteria = req.Criteria
	rubric.Source = source
	if err := s.repo.Update(ctx, rubric); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rubric")
	}
	return rubric, nil
}

// Delete removes a rubric when no submissions were graded against it.
func (s *RubricService) Delete(ctx context.Context, claims *models.JWTClaims, universityCode, commissionCode, code string) error {
	if claims != nil && !models.Capabilities(claims.Role).ManageRubrics {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage rubrics")
	}

	rubric, err := s.Get(ctx, universityCode, commissionCode, code)
	if err != nil {
		return err
	}
	if err := requireScope(claims, rubric.UniversityCode, rubric.FacultyCode, rubric.CourseCode); err != nil {
		return err
	}

	submissions, err := s.repo.CountSubmissions(ctx, rubric.Code, rubric.CommissionCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}
	if submissions > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "rubric still has submissions")
	}

	if err := s.repo.Delete(ctx, rubric.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rubric")
	}
	return nil
}
