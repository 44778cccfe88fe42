package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
)

type mockHierarchyRepo struct {
	universityCalls int
	facultyCalls    int
	options         []models.Option
}

func (m *mockHierarchyRepo) UniversityOptions(ctx context.Context) ([]models.Option, error) {
	m.universityCalls++
	return m.options, nil
}

func (m *mockHierarchyRepo) FacultyOptions(ctx context.Context, universityCode string) ([]models.Option, error) {
	m.facultyCalls++
	return m.options, nil
}

func (m *mockHierarchyRepo) CareerOptions(ctx context.Context, universityCode, facultyCode string) ([]models.Option, error) {
	return m.options, nil
}

func (m *mockHierarchyRepo) CourseOptions(ctx context.Context, universityCode string) ([]models.Option, error) {
	return m.options, nil
}

func (m *mockHierarchyRepo) CommissionOptions(ctx context.Context, universityCode, courseCode string) ([]models.Option, error) {
	return m.options, nil
}

type memoryCache struct {
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	c.entries = make(map[string][]byte)
	return nil
}

var _ optionsInvalidator = (*HierarchyService)(nil)

func TestHierarchyInvalidatedByEntityWrite(t *testing.T) {
	repo := &mockHierarchyRepo{options: []models.Option{{Code: "utn", Name: "UTN"}}}
	hierarchy := NewHierarchyService(repo, newMemoryCache(), time.Minute, true, nil)

	_, err := hierarchy.Universities(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.universityCalls)

	universities := NewUniversityService(&mockUniversityRepo{}, hierarchy, nil, nil)
	_, err = universities.Create(context.Background(), adminClaims(), CreateUniversityRequest{Name: "Universidad Nacional de Cuyo"})
	require.NoError(t, err)

	_, err = hierarchy.Universities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.universityCalls)
}

func TestHierarchyUniversitiesCached(t *testing.T) {
	repo := &mockHierarchyRepo{options: []models.Option{{Code: "utn", Name: "UTN"}}}
	cache := newMemoryCache()
	svc := NewHierarchyService(repo, cache, time.Minute, true, nil)

	first, err := svc.Universities(context.Background())
	require.NoError(t, err)
	second, err := svc.Universities(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.universityCalls)
}

func TestHierarchyFacultiesRequireUniversity(t *testing.T) {
	repo := &mockHierarchyRepo{options: []models.Option{{Code: "ing", Name: "Ingenieria"}}}
	svc := NewHierarchyService(repo, nil, time.Minute, false, nil)

	options, err := svc.Faculties(context.Background(), models.HierarchySelection{})
	require.NoError(t, err)
	assert.Empty(t, options)
	assert.Equal(t, 0, repo.facultyCalls)

	options, err = svc.Faculties(context.Background(), models.HierarchySelection{UniversityCode: "utn"})
	require.NoError(t, err)
	assert.Len(t, options, 1)
}

func TestHierarchyCommissionsRequireCourse(t *testing.T) {
	repo := &mockHierarchyRepo{options: []models.Option{{Code: "k1051", Name: "K1051"}}}
	svc := NewHierarchyService(repo, nil, time.Minute, false, nil)

	options, err := svc.Commissions(context.Background(), models.HierarchySelection{UniversityCode: "utn"})
	require.NoError(t, err)
	assert.Empty(t, options)
}

func TestHierarchyCoursesIgnoreCareerSelection(t *testing.T) {
	repo := &mockHierarchyRepo{options: []models.Option{{Code: "prog-2", Name: "Programacion 2"}}}
	svc := NewHierarchyService(repo, nil, time.Minute, false, nil)

	withCareer, err := svc.Courses(context.Background(), models.HierarchySelection{UniversityCode: "utn", CareerCode: "sistemas"})
	require.NoError(t, err)
	withoutCareer, err2 := svc.Courses(context.Background(), models.HierarchySelection{UniversityCode: "utn"})
	require.NoError(t, err2)
	assert.Equal(t, withoutCareer, withCareer)
}

func TestHierarchyInvalidateOptions(t *testing.T) {
	repo := &mockHierarchyRepo{options: []models.Option{{Code: "utn", Name: "UTN"}}}
	cache := newMemoryCache()
	svc := NewHierarchyService(repo, cache, time.Minute, true, nil)

	_, err := svc.Universities(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	svc.InvalidateOptions(context.Background())
	assert.Empty(t, cache.entries)
	require.Len(t, cache.deleted, 1)
	assert.Equal(t, "hierarchy:options:*", cache.deleted[0])
}

func TestHierarchyCacheMetrics(t *testing.T) {
	repo := &mockHierarchyRepo{options: []models.Option{{Code: "utn", Name: "UTN"}}}
	cache := newMemoryCache()
	svc := NewHierarchyService(repo, cache, time.Minute, true, nil)
	metrics := &stubCacheMetrics{}
	svc.SetMetrics(metrics)

	_, _ = svc.Universities(context.Background())
	_, _ = svc.Universities(context.Background())

	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.hits)
}

type stubCacheMetrics struct {
	hits   int
	misses int
}

func (s *stubCacheMetrics) RecordCacheOperation(hit bool) {
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}
