package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
)

type mockUniversityRepo struct {
	universities map[string]*models.University
	children     int
	created      *models.University
	updated      *models.University
	deletedID    string
}

func (m *mockUniversityRepo) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error) {
	var out []models.University
	for _, u := range m.universities {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUniversityRepo) FindByCode(ctx context.Context, code string) (*models.University, error) {
	u, ok := m.universities[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUniversityRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	_, ok := m.universities[code]
	return ok, nil
}

func (m *mockUniversityRepo) Create(ctx context.Context, university *models.University) error {
	university.ID = "gen-id"
	m.created = university
	if m.universities == nil {
		m.universities = make(map[string]*models.University)
	}
	m.universities[university.Code] = university
	return nil
}

func (m *mockUniversityRepo) Update(ctx context.Context, university *models.University) error {
	m.updated = university
	return nil
}

func (m *mockUniversityRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockUniversityRepo) CountChildren(ctx context.Context, code string) (int, error) {
	return m.children, nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateOptions(ctx context.Context) {
	m.calls++
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestUniversityCreateDerivesIdentifier(t *testing.T) {
	repo := &mockUniversityRepo{universities: map[string]*models.University{}}
	cache := &mockInvalidator{}
	svc := NewUniversityService(repo, cache, nil, nil)

	created, err := svc.Create(context.Background(), adminClaims(), CreateUniversityRequest{Name: "UTN - Facultad Regional Mendoza"})
	require.NoError(t, err)
	assert.Equal(t, "utn-frm", created.Code)
	assert.Equal(t, "UTN - Facultad Regional Mendoza", created.Name)
	assert.Equal(t, 1, cache.calls)
}

func TestUniversityCreateDuplicateIdentifier(t *testing.T) {
	repo := &mockUniversityRepo{universities: map[string]*models.University{
		"utn": {ID: "1", Code: "utn", Name: "UTN"},
	}}
	svc := NewUniversityService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), adminClaims(), CreateUniversityRequest{Code: "utn", Name: "Otra UTN"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateID.Code, appErrors.FromError(err).Code)
}

func TestUniversityCreateInvalidIdentifier(t *testing.T) {
	svc := NewUniversityService(&mockUniversityRepo{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), adminClaims(), CreateUniversityRequest{Code: "UTN MendOza!", Name: "UTN"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidID.Code, appErrors.FromError(err).Code)
}

func TestUniversityCreateForbiddenRole(t *testing.T) {
	svc := NewUniversityService(&mockUniversityRepo{}, nil, nil, nil)
	claims := &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor}

	_, err := svc.Create(context.Background(), claims, CreateUniversityRequest{Name: "UTN"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUniversityUpdateKeepsIdentifier(t *testing.T) {
	repo := &mockUniversityRepo{universities: map[string]*models.University{
		"utn": {ID: "1", Code: "utn", Name: "UTN"},
	}}
	svc := NewUniversityService(repo, nil, nil, nil)

	updated, err := svc.Update(context.Background(), adminClaims(), "utn", UpdateUniversityRequest{Name: "UTN Renombrada"})
	require.NoError(t, err)
	assert.Equal(t, "utn", updated.Code)
	assert.Equal(t, "UTN Renombrada", updated.Name)
}

func TestUniversityDeleteGuardedByChildren(t *testing.T) {
	repo := &mockUniversityRepo{
		universities: map[string]*models.University{"utn": {ID: "1", Code: "utn", Name: "UTN"}},
		children:     2,
	}
	svc := NewUniversityService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), adminClaims(), "utn")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deletedID)
}

func TestUniversityDeleteWithoutChildren(t *testing.T) {
	repo := &mockUniversityRepo{
		universities: map[string]*models.University{"utn": {ID: "1", Code: "utn", Name: "UTN"}},
	}
	cache := &mockInvalidator{}
	svc := NewUniversityService(repo, cache, nil, nil)

	err := svc.Delete(context.Background(), adminClaims(), "utn")
	require.NoError(t, err)
	assert.Equal(t, "1", repo.deletedID)
	assert.Equal(t, 1, cache.calls)
}

func TestUniversityGetNotFound(t *testing.T) {
	svc := NewUniversityService(&mockUniversityRepo{}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUniversityCheckCode(t *testing.T) {
	repo := &mockUniversityRepo{universities: map[string]*models.University{
		"utn": {ID: "1", Code: "utn", Name: "UTN"},
	}}
	svc := NewUniversityService(repo, nil, nil, nil)

	available, err := svc.CheckCode(context.Background(), "uba")
	require.NoError(t, err)
	assert.True(t, available)

	available, err = svc.CheckCode(context.Background(), "utn")
	require.NoError(t, err)
	assert.False(t, available)

	_, err = svc.CheckCode(context.Background(), "Not Valid")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidID.Code, appErrors.FromError(err).Code)
}
