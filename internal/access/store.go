package access

import (
	"context"
	"time"
)

// GrantStore is the injectable cache behind the grant service. The
// in-memory implementation serves single-instance deployments; the Redis
// implementation shares grants across instances. Put inserts with a TTL,
// Scan visits entries until fn returns false, Sweep evicts entries expired
// at now (a no-op where the backend expires natively).
type GrantStore interface {
	Put(ctx context.Context, key string, grant Grant, ttl time.Duration) error
	Scan(ctx context.Context, fn func(key string, grant Grant) bool) error
	Delete(ctx context.Context, key string) error
	Sweep(ctx context.Context, now time.Time) error
}
