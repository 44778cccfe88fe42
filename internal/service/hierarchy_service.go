package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
	appErrors "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/errors"
)

type hierarchyOptionRepository interface {
	UniversityOptions(ctx context.Context) ([]models.Option, error)
	FacultyOptions(ctx context.Context, universityCode string) ([]models.Option, error)
	CareerOptions(ctx context.Context, universityCode, facultyCode string) ([]models.Option, error)
	CourseOptions(ctx context.Context, universityCode string) ([]models.Option, error)
	CommissionOptions(ctx context.Context, universityCode, courseCode string) ([]models.Option, error)
}

type hierarchyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetricsRecorder interface {
	RecordCacheOperation(hit bool)
}

const hierarchyCachePrefix = "hierarchy:options"

// HierarchyService serves the option lists backing cascading selects. Each
// level is scoped by the selected ancestors; a missing ancestor yields an
// empty list rather than an error, matching how dependent dropdowns reset.
type HierarchyService struct {
	repo    hierarchyOptionRepository
	cache   hierarchyCache
	ttl     time.Duration
	enabled bool
	metrics cacheMetricsRecorder
	logger  *zap.Logger
}

// SetMetrics attaches a recorder for cache hit/miss counters.
func (s *HierarchyService) SetMetrics(metrics cacheMetricsRecorder) {
	s.metrics = metrics
}

// NewHierarchyService creates a new hierarchy service. Caching is skipped
// when cache is nil or disabled by config.
func NewHierarchyService(repo hierarchyOptionRepository, cache hierarchyCache, ttl time.Duration, enabled bool, logger *zap.Logger) *HierarchyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HierarchyService{repo: repo, cache: cache, ttl: ttl, enabled: enabled && cache != nil, logger: logger}
}

// Universities returns the root option list.
func (s *HierarchyService) Universities(ctx context.Context) ([]models.Option, error) {
	return s.cached(ctx, s.key("universities"), func() ([]models.Option, error) {
		return s.repo.UniversityOptions(ctx)
	})
}

// Faculties returns faculty options under one university.
func (s *HierarchyService) Faculties(ctx context.Context, sel models.HierarchySelection) ([]models.Option, error) {
	if sel.UniversityCode == "" {
		return []models.Option{}, nil
	}
	return s.cached(ctx, s.key("faculties", sel.UniversityCode), func() ([]models.Option, error) {
		return s.repo.FacultyOptions(ctx, sel.UniversityCode)
	})
}

// Careers returns career options under one faculty.
func (s *HierarchyService) Careers(ctx context.Context, sel models.HierarchySelection) ([]models.Option, error) {
	if sel.UniversityCode == "" || sel.FacultyCode == "" {
		return []models.Option{}, nil
	}
	return s.cached(ctx, s.key("careers", sel.UniversityCode, sel.FacultyCode), func() ([]models.Option, error) {
		return s.repo.CareerOptions(ctx, sel.UniversityCode, sel.FacultyCode)
	})
}

// Courses returns course options under one university. Courses are not
// career-scoped, so a career selection does not narrow them.
func (s *HierarchyService) Courses(ctx context.Context, sel models.HierarchySelection) ([]models.Option, error) {
	if sel.UniversityCode == "" {
		return []models.Option{}, nil
	}
	return s.cached(ctx, s.key("courses", sel.UniversityCode), func() ([]models.Option, error) {
		return s.repo.CourseOptions(ctx, sel.UniversityCode)
	})
}

// Commissions returns commission options under one course.
func (s *HierarchyService) Commissions(ctx context.Context, sel models.HierarchySelection) ([]models.Option, error) {
	if sel.UniversityCode == "" || sel.CourseCode == "" {
		return []models.Option{}, nil
	}
	return s.cached(ctx, s.key("commissions", sel.UniversityCode, sel.CourseCode), func() ([]models.Option, error) {
		return s.repo.CommissionOptions(ctx, sel.UniversityCode, sel.CourseCode)
	})
}

// InvalidateOptions drops every cached option list. Entity services call it
// after each hierarchy mutation.
func (s *HierarchyService) InvalidateOptions(ctx context.Context) {
	if !s.enabled {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, hierarchyCachePrefix+":*"); err != nil {
		s.logger.Warn("failed to invalidate hierarchy option cache", zap.Error(err))
	}
}

func (s *HierarchyService) key(parts ...string) string {
	return hierarchyCachePrefix + ":" + strings.ToLower(strings.Join(parts, ":"))
}

func (s *HierarchyService) cached(ctx context.Context, key string, load func() ([]models.Option, error)) ([]models.Option, error) {
	if s.enabled {
		var options []models.Option
		if err := s.cache.Get(ctx, key, &options); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return options, nil
		} else if err != appErrors.ErrCacheMiss {
			s.logger.Warn("hierarchy cache read failed", zap.String("key", key), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	options, err := load()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", key))
	}
	if options == nil {
		options = []models.Option{}
	}

	if s.enabled {
		if err := s.cache.Set(ctx, key, options, s.ttl); err != nil {
			s.logger.Warn("hierarchy cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return options, nil
}
