package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used as a fallback when Redis is unavailable - all operations succeed
// but no actual caching occurs (always cache miss).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetReply always returns nil (cache miss)
func (c *NoOpCache) GetReply(ctx context.Context, key string) (*Reply, error) {
	return nil, nil
}

// SetReply does nothing and always succeeds
func (c *NoOpCache) SetReply(ctx context.Context, key string, reply *Reply, ttl time.Duration) error {
	return nil
}

// Invalidate does nothing and always succeeds
func (c *NoOpCache) Invalidate(ctx context.Context) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
