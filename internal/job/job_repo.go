package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"go-timeclock/internal/tenant"
)

type Repository interface {
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Job, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Job, error) {
	var j Job
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&j, "id = ?", id).Error
	return &j, err
}

// cachedRepository fronts job lookups with redis. Jobs are read-only to this
// service and hit on every clock-in, so a short TTL is safe. singleflight
// collapses concurrent misses for the same job into one DB query.
type cachedRepository struct {
	inner Repository
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedRepository(inner Repository, rdb *redis.Client, ttl time.Duration) Repository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedRepository{inner: inner, rdb: rdb, ttl: ttl}
}

func (r *cachedRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Job, error) {
	cacheKey := fmt.Sprintf("job:%s:%s", companyID, id)

	if r.rdb != nil {
		if raw, err := r.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var j Job
			if err := json.Unmarshal([]byte(raw), &j); err == nil {
				return &j, nil
			}
		}
	}

	v, err, _ := r.group.Do(cacheKey, func() (any, error) {
		j, err := r.inner.FindByIDAndCompany(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		if r.rdb != nil {
			if raw, err := json.Marshal(j); err == nil {
				r.rdb.Set(ctx, cacheKey, raw, r.ttl)
			}
		}
		return j, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Job), nil
}
