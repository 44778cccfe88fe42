package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
	Restore(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest represents payload for creating users through the
// admin surface. Scope fields are validated against the assigned role.
type CreateUserRequest struct {
	Username     string          `json:"username" validate:"required,min=3"`
	Password     string          `json:"password" validate:"required,min=6"`
	FullName     string          `json:"full_name" validate:"required"`
	Email        string          `json:"email" validate:"required,email"`
	Role         models.UserRole `json:"role" validate:"required"`
	UniversityID *string         `json:"university_id"`
	FacultyID    *string         `json:"faculty_id"`
	CourseIDs    []string        `json:"course_ids"`
}

// UpdateUserRequest payload for updating users. Username is immutable.
type UpdateUserRequest struct {
	FullName     string          `json:"full_name" validate:"required"`
	Email        string          `json:"email" validate:"required,email"`
	Role         models.UserRole `json:"role" validate:"required"`
	UniversityID *string         `json:"university_id"`
	FacultyID    *string         `json:"faculty_id"`
	CourseIDs    []string        `json:"course_ids"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users scoped to the caller's admin reach.
func (s *UserService) List(ctx context.Context, claims *models.JWTClaims, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if claims != nil {
		caps := models.Capabilities(claims.Role)
		if !caps.ManageUsers {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "role may not manage users")
		}
		switch caps.Scope {
		case models.ScopeUniversity:
			if claims.UniversityID != nil {
				filter.UniversityID = *claims.UniversityID
			}
		case models.ScopeFaculty:
			if claims.UniversityID != nil {
				filter.UniversityID = *claims.UniversityID
			}
			if claims.FacultyID != nil {
				filter.FacultyID = *claims.FacultyID
			}
		}
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new user with an assigned role and scope.
func (s *UserService) Create(ctx context.Context, claims *models.JWTClaims, req CreateUserRequest, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if err := s.authorizeAssignment(claims, req.Role, req.UniversityID, req.FacultyID); err != nil {
		return nil, err
	}
	if err := validateRoleScope(req.Role, req.UniversityID, req.FacultyID, req.CourseIDs); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		PasswordHash: string(passwordHash),
		FullName:     req.FullName,
		Email:        strings.ToLower(req.Email),
		Role:         req.Role,
		UniversityID: req.UniversityID,
		FacultyID:    req.FacultyID,
		CourseIDs:    req.CourseIDs,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, claims, models.AuditActionCreate, user.ID, map[string]interface{}{"username": user.Username, "role": user.Role}, meta)
	return user, nil
}

// Update modifies a user's profile, role and scope. The seed admin account
// keeps its role no matter what the payload says.
func (s *UserService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateUserRequest, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update user payload")
	}
	if err := s.authorizeAssignment(claims, req.Role, req.UniversityID, req.FacultyID); err != nil {
		return nil, err
	}
	if err := validateRoleScope(req.Role, req.UniversityID, req.FacultyID, req.CourseIDs); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.Username == models.SeedAdminUsername && req.Role != user.Role {
		return nil, appErrors.Clone(appErrors.ErrImmutableField, "the seed admin role cannot be changed")
	}

	user.FullName = req.FullName
	user.Email = strings.ToLower(req.Email)
	user.Role = req.Role
	user.UniversityID = req.UniversityID
	user.FacultyID = req.FacultyID
	user.CourseIDs = req.CourseIDs
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.audit(ctx, claims, models.AuditActionUpdate, user.ID, map[string]interface{}{"role": user.Role}, meta)
	return user, nil
}

// Delete soft-deletes a user and revokes their sessions. The seed admin
// account cannot be deleted.
func (s *UserService) Delete(ctx context.Context, claims *models.JWTClaims, id string, meta models.LoginRequest) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.Username == models.SeedAdminUsername {
		return appErrors.Clone(appErrors.ErrForbidden, "the seed admin account cannot be deleted")
	}
	if user.Deleted() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "user is already deleted")
	}
	if err := s.authorizeAssignment(claims, user.Role, user.UniversityID, user.FacultyID); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions of deleted user", zap.Error(err))
	}

	s.audit(ctx, claims, models.AuditActionDelete, id, map[string]interface{}{"username": user.Username}, meta)
	return nil
}

// Restore brings a soft-deleted user back.
func (s *UserService) Restore(ctx context.Context, claims *models.JWTClaims, id string, meta models.LoginRequest) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Deleted() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "user is not deleted")
	}
	if err := s.authorizeAssignment(claims, user.Role, user.UniversityID, user.FacultyID); err != nil {
		return nil, err
	}

	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore user")
	}
	user.DeletedAt = nil

	s.audit(ctx, claims, models.AuditActionRestore, id, map[string]interface{}{"restored": true}, meta)
	return user, nil
}

// authorizeAssignment verifies the caller may manage an account of the
// given role and scope. Scoped admins cannot mint accounts broader than
// their own reach.
func (s *UserService) authorizeAssignment(claims *models.JWTClaims, role models.UserRole, universityID, facultyID *string) error {
	if claims == nil {
		return nil
	}

	caps := models.Capabilities(claims.Role)
	if !caps.ManageUsers {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage users")
	}

	targetCaps := models.Capabilities(role)
	switch caps.Scope {
	case models.ScopeGlobal:
		return nil
	case models.ScopeUniversity:
		if targetCaps.Scope == models.ScopeGlobal {
			return appErrors.Clone(appErrors.ErrForbidden, "cannot assign a role broader than your own")
		}
		if universityID == nil || claims.UniversityID == nil || !strings.EqualFold(*universityID, *claims.UniversityID) {
			return appErrors.Clone(appErrors.ErrScopeViolation, "account must belong to your university")
		}
		return nil
	case models.ScopeFaculty:
		if targetCaps.Scope == models.ScopeGlobal || targetCaps.Scope == models.ScopeUniversity {
			return appErrors.Clone(appErrors.ErrForbidden, "cannot assign a role broader than your own")
		}
		if universityID == nil || claims.UniversityID == nil || !strings.EqualFold(*universityID, *claims.UniversityID) {
			return appErrors.Clone(appErrors.ErrScopeViolation, "account must belong to your university")
		}
		if facultyID != nil && claims.FacultyID != nil && !strings.EqualFold(*facultyID, *claims.FacultyID) {
			return appErrors.Clone(appErrors.ErrScopeViolation, "account must belong to your faculty")
		}
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "role may not manage users")
}

// validateRoleScope checks the scope fields demanded by each role family.
func validateRoleScope(role models.UserRole, universityID, facultyID *string, courseIDs []string) error {
	if _, known := models.RolePermissions[role]; !known {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	switch models.Capabilities(role).Scope {
	case models.ScopeUniversity:
		if universityID == nil || *universityID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "university-scoped roles require university_id")
		}
	case models.ScopeFaculty:
		if universityID == nil || *universityID == "" || facultyID == nil || *facultyID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "faculty-scoped roles require university_id and faculty_id")
		}
	case models.ScopeCourses:
		if len(courseIDs) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "course-scoped roles require course_ids")
		}
	}
	return nil
}

func (s *UserService) audit(ctx context.Context, claims *models.JWTClaims, action string, resourceID string, values map[string]interface{}, meta models.LoginRequest) {
	var actorID *string
	if claims != nil {
		actorID = &claims.UserID
	}
	payload, _ := json.Marshal(values)
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "user",
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.Error(err))
	}
}
