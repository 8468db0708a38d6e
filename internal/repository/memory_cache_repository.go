package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"

	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

// MemoryCacheRepository keeps cached payloads in process. It stands in for
// Redis on single-instance deployments.
type MemoryCacheRepository struct {
	store *gocache.Cache
}

// NewMemoryCacheRepository creates an in-process cache that purges expired
// entries every cleanup interval.
func NewMemoryCacheRepository(defaultTTL, cleanup time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{store: gocache.New(defaultTTL, cleanup)}
}

// Get unmarshals the cached value into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.store.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	payload, ok := raw.([]byte)
	if !ok {
		return fmt.Errorf("unexpected cache value type for %s", key)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores a JSON copy of value so callers never share mutable state.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.store.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes keys matching a glob pattern such as "grades:course:1:*".
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range r.store.Items() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("match cache pattern %s: %w", pattern, err)
		}
		if matched {
			r.store.Delete(key)
		}
	}
	return nil
}
