package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
)

type mockFacultyRepo struct {
	faculties map[string]*models.Faculty
	careers   int
	deletedID string
}

func facultyKey(universityCode, code string) string {
	return strings.ToLower(universityCode) + "/" + strings.ToLower(code)
}

func (m *mockFacultyRepo) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	var out []models.Faculty
	for _, f := range m.faculties {
		out = append(out, *f)
	}
	return out, len(out), nil
}

func (m *mockFacultyRepo) FindByCode(ctx context.Context, universityCode, code string) (*models.Faculty, error) {
	f, ok := m.faculties[facultyKey(universityCode, code)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f, nil
}

func (m *mockFacultyRepo) ExistsByCode(ctx context.Context, universityCode, code, excludeID string) (bool, error) {
	_, ok := m.faculties[facultyKey(universityCode, code)]
	return ok, nil
}

func (m *mockFacultyRepo) Create(ctx context.Context, faculty *models.Faculty) error {
	faculty.ID = "gen-id"
	if m.faculties == nil {
		m.faculties = make(map[string]*models.Faculty)
	}
	m.faculties[facultyKey(faculty.UniversityCode, faculty.Code)] = faculty
	return nil
}

func (m *mockFacultyRepo) Update(ctx context.Context, faculty *models.Faculty) error {
	m.faculties[facultyKey(faculty.UniversityCode, faculty.Code)] = faculty
	return nil
}

func (m *mockFacultyRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockFacultyRepo) CountCareers(ctx context.Context, universityCode, code string) (int, error) {
	return m.careers, nil
}

type mockFacultyUniversities struct {
	universities map[string]*models.University
}

func (m *mockFacultyUniversities) FindByCode(ctx context.Context, code string) (*models.University, error) {
	u, ok := m.universities[strings.ToLower(code)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func newTestFacultyService(repo *mockFacultyRepo) *FacultyService {
	universities := &mockFacultyUniversities{universities: map[string]*models.University{
		"utn":    {ID: "u1", Code: "utn", Name: "UTN"},
		"uncuyo": {ID: "u2", Code: "uncuyo", Name: "UNCuyo"},
	}}
	return NewFacultyService(repo, universities, nil, nil, nil)
}

func TestFacultyCreateIdentifierUniquePerUniversity(t *testing.T) {
	svc := newTestFacultyService(&mockFacultyRepo{})

	cases := []struct {
		name       string
		university string
		code       string
		wantErr    *appErrors.Error
	}{
		{name: "first use under utn", university: "utn", code: "ingenieria"},
		{name: "same identifier under another university", university: "uncuyo", code: "ingenieria"},
		{name: "duplicate within the same university", university: "utn", code: "ingenieria", wantErr: appErrors.ErrDuplicateID},
		{name: "mixed case rejected before the duplicate check", university: "utn", code: "INGENIERIA", wantErr: appErrors.ErrInvalidID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), adminClaims(), CreateFacultyRequest{
				Code:           tc.code,
				Name:           "Facultad de Ingenieria",
				UniversityCode: tc.university,
			})
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tc.wantErr.Code, appErrors.FromError(err).Code)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFacultyWritesHonorUniversityScope(t *testing.T) {
	scoped := &models.JWTClaims{UserID: "ua-1", Role: models.RoleUniversityAdmin, UniversityID: strPtr("utn")}

	t.Run("create outside own university", func(t *testing.T) {
		svc := newTestFacultyService(&mockFacultyRepo{})
		_, err := svc.Create(context.Background(), scoped, CreateFacultyRequest{
			Name:           "Facultad de Derecho",
			UniversityCode: "uncuyo",
		})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrScopeViolation.Code, appErrors.FromError(err).Code)
	})

	t.Run("create within own university", func(t *testing.T) {
		svc := newTestFacultyService(&mockFacultyRepo{})
		created, err := svc.Create(context.Background(), scoped, CreateFacultyRequest{
			Name:           "Facultad de Derecho",
			UniversityCode: "utn",
		})
		require.NoError(t, err)
		assert.Equal(t, "utn", created.UniversityCode)
	})

	t.Run("delete outside own university", func(t *testing.T) {
		repo := &mockFacultyRepo{faculties: map[string]*models.Faculty{
			"uncuyo/derecho": {ID: "f1", Code: "derecho", UniversityCode: "uncuyo"},
		}}
		err := newTestFacultyService(repo).Delete(context.Background(), scoped, "uncuyo", "derecho")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrScopeViolation.Code, appErrors.FromError(err).Code)
		assert.Empty(t, repo.deletedID)
	})
}
