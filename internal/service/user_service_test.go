package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
)

type mockUserRepo struct {
	users          map[string]*models.User
	usernameExists bool
	softDeletedID  string
	restoredID     string
	revokedUserID  string
	auditLogs      []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		if filter.UniversityID != "" && (u.UniversityID == nil || *u.UniversityID != filter.UniversityID) {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	return m.usernameExists, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "new-user"
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	m.softDeletedID = id
	if u, ok := m.users[id]; ok {
		u.DeletedAt = &deletedAt
	}
	return nil
}

func (m *mockUserRepo) Restore(ctx context.Context, id string) error {
	m.restoredID = id
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUserID = userID
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func strPtr(s string) *string { return &s }

func TestUserCreateProfessorRequiresCourses(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), adminClaims(), CreateUserRequest{
		Username: "profesor",
		Password: "secret123",
		FullName: "Profesor Uno",
		Email:    "p@example.com",
		Role:     models.RoleProfessor,
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserCreateSuccess(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), adminClaims(), CreateUserRequest{
		Username: "Profesor",
		Password: "secret123",
		FullName: "Profesor Uno",
		Email:    "P@Example.com",
		Role:     models.RoleProfessor,
		CourseIDs: []string{
			"prog-2",
		},
	}, models.LoginRequest{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "profesor", user.Username)
	assert.Equal(t, "p@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionCreate, repo.auditLogs[0].Action)
	assert.Equal(t, "10.0.0.1", repo.auditLogs[0].IPAddress)
}

func TestUserCreateScopedAdminCannotEscalate(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)
	claims := &models.JWTClaims{UserID: "ua1", Role: models.RoleUniversityAdmin, UniversityID: strPtr("utn")}

	_, err := svc.Create(context.Background(), claims, CreateUserRequest{
		Username: "superadmin2",
		Password: "secret123",
		FullName: "Intruso",
		Email:    "i@example.com",
		Role:     models.RoleAdmin,
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserCreateScopedAdminWrongUniversity(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)
	claims := &models.JWTClaims{UserID: "ua1", Role: models.RoleUniversityAdmin, UniversityID: strPtr("utn")}

	_, err := svc.Create(context.Background(), claims, CreateUserRequest{
		Username:     "ajeno",
		Password:     "secret123",
		FullName:     "De Otra Universidad",
		Email:        "a@example.com",
		Role:         models.RoleFacultyAdmin,
		UniversityID: strPtr("uba"),
		FacultyID:    strPtr("ingenieria"),
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScopeViolation.Code, appErrors.FromError(err).Code)
}

func TestUserListScopedToUniversity(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "uno", UniversityID: strPtr("utn")},
		"u2": {ID: "u2", Username: "dos", UniversityID: strPtr("uba")},
	}}
	svc := NewUserService(repo, nil, nil)
	claims := &models.JWTClaims{UserID: "ua1", Role: models.RoleUniversityAdmin, UniversityID: strPtr("utn")}

	users, _, err := svc.List(context.Background(), claims, models.UserFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "uno", users[0].Username)
}

func TestUserUpdateSeedAdminRoleImmutable(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"seed": {ID: "seed", Username: models.SeedAdminUsername, Role: models.RoleSuperAdmin},
	}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Update(context.Background(), adminClaims(), "seed", UpdateUserRequest{
		FullName: "Seed",
		Email:    "seed@example.com",
		Role:     models.RoleUser,
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrImmutableField.Code, appErrors.FromError(err).Code)
}

func TestUserDeleteSeedAdminForbidden(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"seed": {ID: "seed", Username: models.SeedAdminUsername, Role: models.RoleSuperAdmin},
	}}
	svc := NewUserService(repo, nil, nil)

	err := svc.Delete(context.Background(), adminClaims(), "seed", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.softDeletedID)
}

func TestUserDeleteRevokesSessions(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "uno", Role: models.RoleUser},
	}}
	svc := NewUserService(repo, nil, nil)

	err := svc.Delete(context.Background(), adminClaims(), "u1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.softDeletedID)
	assert.Equal(t, "u1", repo.revokedUserID)
}

func TestUserRestore(t *testing.T) {
	deletedAt := time.Now().UTC()
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "uno", Role: models.RoleUser, DeletedAt: &deletedAt},
	}}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Restore(context.Background(), adminClaims(), "u1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Nil(t, user.DeletedAt)
	assert.Equal(t, "u1", repo.restoredID)
}

func TestUserRestoreNotDeleted(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "uno", Role: models.RoleUser},
	}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Restore(context.Background(), adminClaims(), "u1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
