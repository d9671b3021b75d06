package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bluo42/adu-chatbot/internal/assistant"
)

// Cache provides assistant reply caching
type Cache interface {
	// GetReply retrieves a cached reply by key.
	// Returns nil if not found
	GetReply(ctx context.Context, key string) (*Reply, error)

	// SetReply stores a reply with TTL
	SetReply(ctx context.Context, key string, reply *Reply, ttl time.Duration) error

	// Invalidate drops every cached reply. Called after a corpus sync:
	// new documents can change any answer.
	Invalidate(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// Reply is a cached assistant answer.
type Reply struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// Key derives a cache key from the response role and the full transcript.
// Only identical conversations hit the same entry, so a cached reply can
// never carry the wrong context; in practice this caches the common
// first-question case.
func Key(role string, transcript []assistant.Turn) string {
	h := sha256.New()
	h.Write([]byte(role))
	for _, t := range transcript {
		h.Write([]byte{0})
		h.Write([]byte(t.Author))
		h.Write([]byte{0})
		h.Write([]byte(t.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
