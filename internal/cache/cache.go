package cache

import (
	"context"
	"time"
)

// BytesCache is a best-effort byte cache. Implementations may lose entries at
// any time; callers must treat a miss and an error the same way.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
