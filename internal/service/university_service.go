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

type universityRepository interface {
	List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error)
	FindByCode(ctx context.Context, code string) (*models.University, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, university *models.University) error
	Update(ctx context.Context, university *models.University) error
	Delete(ctx context.Context, id string) error
	CountChildren(ctx context.Context, code string) (int, error)
}

// optionsInvalidator clears cached hierarchy option lists after writes.
type optionsInvalidator interface {
	InvalidateOptions(ctx context.Context)
}

// CreateUniversityRequest captures fields for creating universities. Code is
// optional; when absent one is derived from the name.
type CreateUniversityRequest struct {
	Code string `json:"university_id"`
	Name string `json:"name" validate:"required"`
}

// UpdateUniversityRequest modifies university fields. The identifier is
// immutable, so only the display name is accepted.
type UpdateUniversityRequest struct {
	Name string `json:"name" validate:"required"`
}

// UniversityService handles university domain workflows.
type UniversityService struct {
	repo      universityRepository
	cache     optionsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUniversityService creates a new university service.
func NewUniversityService(repo universityRepository, cache optionsInvalidator, validate *validator.Validate, logger *zap.Logger) *UniversityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UniversityService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns paginated universities.
func (s *UniversityService) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, *models.Pagination, error) {
	universities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list universities")
	}
	return universities, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a university by its identifier.
func (s *UniversityService) Get(ctx context.Context, code string) (*models.University, error) {
	university, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university")
	}
	return university, nil
}

// SuggestCode derives an identifier from a display name, recognising
// acronym-plus-campus names like "UTN - Facultad Regional Mendoza".
func (s *UniversityService) SuggestCode(name string) string {
	return slug.SuggestUniversityID(name)
}

// CheckCode reports whether an identifier is free. Invalid identifiers are
// rejected outright.
func (s *UniversityService) CheckCode(ctx context.Context, code string) (bool, error) {
	if !slug.IsValid(code) {
		return false, appErrors.Clone(appErrors.ErrInvalidID, "university identifier must contain only lowercase letters, digits and hyphens")
	}
	exists, err := s.repo.ExistsByCode(ctx, code, "")
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check university identifier")
	}
	return !exists, nil
}

// Create adds a new university, deriving the identifier when absent.
func (s *UniversityService) Create(ctx context.Context, claims *models.JWTClaims, req CreateUniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid university payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageUniversities {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage universities")
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.SuggestUniversityID(req.Name)
	}
	if !slug.IsValid(code) {
		return nil, appErrors.Clone(appErrors.ErrInvalidID, "university identifier must contain only lowercase letters, digits and hyphens")
	}

	exists, err := s.repo.ExistsByCode(ctx, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check university identifier")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateID, "university identifier already in use")
	}

	university := &models.University{Code: code, Name: strings.TrimSpace(req.Name)}
	if err := s.repo.Create(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create university")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return university, nil
}

// Update renames a university. The identifier never changes.
func (s *UniversityService) Update(ctx context.Context, claims *models.JWTClaims, code string, req UpdateUniversityRequest) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid university payload")
	}
	if claims != nil && !models.Capabilities(claims.Role).ManageUniversities {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage universities")
	}

	university, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	university.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Update(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update university")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return university, nil
}

// Delete removes a university when no faculties or courses hang off it.
func (s *UniversityService) Delete(ctx context.Context, claims *models.JWTClaims, code string) error {
	if claims != nil && !models.Capabilities(claims.Role).ManageUniversities {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage universities")
	}

	university, err := s.Get(ctx, code)
	if err != nil {
		return err
	}

	children, err := s.repo.CountChildren(ctx, university.Code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count descendants")
	}
	if children > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "university still has faculties or courses")
	}

	if err := s.repo.Delete(ctx, university.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete university")
	}

	if s.cache != nil {
		s.cache.InvalidateOptions(ctx)
	}
	return nil
}

func pagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
