package cache

import (
	"sync"
	"time"

	"github.com/colthorp/threadsum-go/internal/forum"
)

type memoryEntry struct {
	url      string
	storedAt time.Time
	messages []forum.Message
}

// MemoryBackend is an in-memory cache backend for testing.
type MemoryBackend struct {
	entries map[string]memoryEntry
	now     func() time.Time
	saves   int
	mu      sync.RWMutex
}

// NewMemoryBackend creates a new in-memory cache backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Path returns a dummy path for the given key.
func (b *MemoryBackend) Path(key string) string {
	return "memory://" + key
}

// Load returns cached messages for key if present and not expired.
func (b *MemoryBackend) Load(key string, expiryDays int) ([]forum.Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[key]
	if !ok || AgeInDays(b.now(), entry.storedAt) >= expiryDays {
		return nil, false
	}
	// Return a copy to prevent mutation
	out := make([]forum.Message, len(entry.messages))
	copy(out, entry.messages)
	return out, true
}

// Save stores a copy of messages.
func (b *MemoryBackend) Save(key, canonicalURL string, messages []forum.Message) error {
	if len(messages) == 0 {
		return ErrEmptySnapshot
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]forum.Message, len(messages))
	copy(stored, messages)
	b.entries[key] = memoryEntry{url: canonicalURL, storedAt: b.now(), messages: stored}
	b.saves++
	return nil
}

// Clear removes all entries.
func (b *MemoryBackend) Clear() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.entries)
	b.entries = make(map[string]memoryEntry)
	return n, nil
}

// Seed stores an entry with an explicit timestamp (for testing).
func (b *MemoryBackend) Seed(canonicalURL string, storedAt time.Time, messages ...forum.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := make([]forum.Message, len(messages))
	copy(stored, messages)
	b.entries[KeyFor(canonicalURL)] = memoryEntry{url: canonicalURL, storedAt: storedAt, messages: stored}
}

// Saves returns how many times Save succeeded (for testing).
func (b *MemoryBackend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// URLs returns the canonical URLs currently stored (for testing).
func (b *MemoryBackend) URLs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.url)
	}
	return out
}
