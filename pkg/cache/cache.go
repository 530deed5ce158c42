// Package cache provides the artifact cache used by the export pipeline.
//
// Rendered diagram images are cached keyed by a hash of the source file
// content, so a publish whose export step fails can fall back to the last
// image rendered from identical source. Backends:
//   - file: directory-based cache for normal CLI usage
//   - redis: shared cache for CI runners and team setups
//   - null: no-op cache for tests and --no-cache
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores opaque byte blobs with optional expiration.
// Implementations must treat a missing key as (nil, false, nil), not an error.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ArtifactKey builds the cache key for a rendered artifact: the content
// hash of the diagram source combined with the output format, so a source
// edit or a format change never serves a stale image.
func ArtifactKey(sourceHash, format string) string {
	return "artifact:" + sourceHash + ":" + format
}
