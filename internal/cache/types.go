// Package cache stores fetched threads on disk and assembles threads from
// cache or a live scrape.
//
// # Cache File Structure
//
// One JSON file per canonical thread URL, named by the hex SHA-256 of that
// URL, under the cache directory (default .cache/threadsum):
//
//	{
//	  "url": "https://forum.example/threads/abc.123/",
//	  "timestamp": "2024-07-15T10:30:00.123456789+02:00",
//	  "messages": [{"date": "...", "content": "..."}, ...]
//	}
//
// # Cache Validity Rules
//
//   - A snapshot is used only when its timestamp parses and the age in whole
//     days is strictly less than the caller's expiry.
//   - Unreadable, unparseable or timestamp-less files are misses, never errors.
//   - Only complete, non-empty scrapes are written. Nothing is ever updated in
//     place; a new scrape replaces the file atomically.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/colthorp/threadsum-go/internal/forum"
)

// Snapshot is the JSON record stored for one thread.
type Snapshot struct {
	URL       string          `json:"url,omitempty"`
	Timestamp string          `json:"timestamp"`
	Messages  []forum.Message `json:"messages"`
}

// ErrEmptySnapshot is returned when asked to store an empty message list.
var ErrEmptySnapshot = errors.New("refusing to cache an empty message list")

// Backend is the interface for cache storage backends.
// The default implementation is FilesystemBackend.
type Backend interface {
	// Load returns the cached messages for key when present and younger than
	// expiryDays. Any failure is reported as a miss.
	Load(key string, expiryDays int) ([]forum.Message, bool)

	// Save stores messages for key, replacing any previous snapshot atomically.
	Save(key, canonicalURL string, messages []forum.Message) error

	// Clear removes every snapshot and returns how many were removed.
	Clear() (int, error)

	// Path returns where key is stored (for diagnostics).
	Path(key string) string
}

// KeyFor derives the cache key of a canonical thread URL.
func KeyFor(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])
}
