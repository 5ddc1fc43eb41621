package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
)

type stepStore interface {
	FindByKey(ctx context.Context, workflowType models.WorkflowType, stepKey string) (*models.WorkflowStepDefinition, error)
	ListByType(ctx context.Context, workflowType models.WorkflowType) ([]models.WorkflowStepDefinition, error)
}

type stepCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// StepCatalogService resolves workflow step definitions, caching the static
// catalog so sweeps do not hammer the database with repeated lookups.
type StepCatalogService struct {
	repo    stepStore
	cache   stepCache
	logger  *zap.Logger
	metrics *MetricsService
	ttl     time.Duration
}

// NewStepCatalogService constructs the catalog service. cache may be nil.
func NewStepCatalogService(repo stepStore, cache stepCache, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *StepCatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &StepCatalogService{repo: repo, cache: cache, logger: logger, metrics: metrics, ttl: ttl}
}

// Resolve returns the catalog row for (workflowType, stepKey), or nil when
// the catalog has no such row.
func (s *StepCatalogService) Resolve(ctx context.Context, workflowType models.WorkflowType, stepKey string) (*models.WorkflowStepDefinition, error) {
	cacheKey := fmt.Sprintf("steps:%s:%s", workflowType, stepKey)

	if s.cache != nil {
		var cached models.WorkflowStepDefinition
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			s.metrics.ObserveCacheHit()
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("step cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		s.metrics.ObserveCacheMiss()
	}

	step, err := s.repo.FindByKey(ctx, workflowType, stepKey)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, step, s.ttl); err != nil {
			s.logger.Warn("step cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return step, nil
}

// Invalidate drops all cached catalog rows, for use after a reseed.
func (s *StepCatalogService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPattern(ctx, "steps:*")
}
