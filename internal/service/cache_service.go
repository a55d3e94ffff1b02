package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// Cache keys for course views. Every course, enrollment or waiting list
// mutation drops everything under courseCachePattern.
const (
	courseCachePattern = "courses:*"
)

func semesterCacheKey(semester string) string {
	return "courses:semester:" + semester
}

func courseDetailCacheKey(id int64) string {
	return fmt.Sprintf("courses:detail:%d", id)
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the Redis cache for course views, recording hit, miss
// and write latency metrics. A nil or disabled service is a no-op.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	// generation counts invalidations. A load that straddles one must not
	// write its result back.
	genMu      sync.RWMutex
	generation uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes the entry at key into dest and reports whether it was a hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// cachedLoad serves key from the cache when possible and otherwise calls load,
// storing its result unless an invalidation ran while it was loading. Cache
// failures never fail the read.
func cachedLoad[T any](ctx context.Context, cache *CacheService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if hit, _ := cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	gen := cache.currentGeneration()
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	_, _ = cache.setIfCurrent(ctx, key, value, ttl, gen)
	return value, nil
}

func (s *CacheService) currentGeneration() uint64 {
	if s == nil {
		return 0
	}
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.generation
}

// setIfCurrent writes the value only while no invalidation has happened
// since gen was read, and reports whether it did.
func (s *CacheService) setIfCurrent(ctx context.Context, key string, value interface{}, ttl time.Duration, gen uint64) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	if s.generation != gen {
		s.logger.Debug("cache write skipped after invalidation", zap.String("key", key))
		return false, nil
	}
	return true, s.Set(ctx, key, value, ttl)
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	s.genMu.Lock()
	s.generation++
	s.genMu.Unlock()
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}
