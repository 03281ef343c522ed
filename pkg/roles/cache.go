package roles

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/campushub/hubaccess/pkg/access"
)

// CachedDirectory wraps a Directory with a Redis cache for role facts.
// Role lookups run on every visibility and workflow decision, so the
// portal fronts them with a short TTL cache. Cache failures fall through
// to the inner directory; the cache is never authoritative.
type CachedDirectory struct {
	inner Directory
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedDirectory creates a caching directory in front of inner.
func NewCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedDirectory{inner: inner, redis: client, ttl: ttl}
}

func roleKey(principalID, hubID uuid.UUID) string {
	return fmt.Sprintf("hubaccess:role:%s:%s", principalID, hubID)
}

func adminKey(principalID uuid.UUID) string {
	return fmt.Sprintf("hubaccess:admin:%s", principalID)
}

// RoleOf returns the cached role when present, falling back to the inner
// directory on a miss. Unknown-hub errors are never cached.
func (d *CachedDirectory) RoleOf(ctx context.Context, principalID, hubID uuid.UUID) (access.HubRole, error) {
	key := roleKey(principalID, hubID)
	if cached, err := d.redis.Get(ctx, key).Result(); err == nil {
		return access.HubRole(cached), nil
	}

	role, err := d.inner.RoleOf(ctx, principalID, hubID)
	if err != nil {
		return role, err
	}

	d.redis.Set(ctx, key, string(role), d.ttl)
	return role, nil
}

// IsPlatformAdmin returns the cached admin flag when present.
func (d *CachedDirectory) IsPlatformAdmin(ctx context.Context, principalID uuid.UUID) (bool, error) {
	key := adminKey(principalID)
	if cached, err := d.redis.Get(ctx, key).Result(); err == nil {
		return cached == "1", nil
	}

	admin, err := d.inner.IsPlatformAdmin(ctx, principalID)
	if err != nil {
		return false, err
	}

	val := "0"
	if admin {
		val = "1"
	}
	d.redis.Set(ctx, key, val, d.ttl)
	return admin, nil
}

// Invalidate drops the cached role for a (principal, hub) pair. The portal
// calls this when it changes a principal's hub role.
func (d *CachedDirectory) Invalidate(ctx context.Context, principalID, hubID uuid.UUID) error {
	return d.redis.Del(ctx, roleKey(principalID, hubID), adminKey(principalID)).Err()
}
