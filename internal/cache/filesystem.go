package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/colthorp/threadsum-go/internal/forum"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FilesystemBackend stores one JSON file per thread under root.
type FilesystemBackend struct {
	root      string
	logger    *zap.Logger
	now       func() time.Time
	writeLock sync.Mutex
}

// NewFilesystemBackend creates a new filesystem-based cache backend.
// An empty root uses core.DefaultCacheDir().
func NewFilesystemBackend(root string, logger *zap.Logger) *FilesystemBackend {
	if root == "" {
		root = core.DefaultCacheDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilesystemBackend{
		root:   root,
		logger: logger.Named("cache"),
		now:    time.Now,
	}
}

// Root returns the cache directory.
func (b *FilesystemBackend) Root() string {
	return b.root
}

// Path returns the filesystem path for the given key.
func (b *FilesystemBackend) Path(key string) string {
	return filepath.Join(b.root, key+core.CacheFileExt)
}

// Load returns cached messages for key if the snapshot is valid and not expired.
func (b *FilesystemBackend) Load(key string, expiryDays int) ([]forum.Message, bool) {
	path := b.Path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			b.logger.Warn("cache read failed", zap.String("path", path), zap.Error(err))
		} else {
			b.logger.Debug("cache miss", zap.String("path", path))
		}
		return nil, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		b.logger.Warn("cache file is not valid JSON", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	if snap.Timestamp == "" {
		b.logger.Warn("cache file has no timestamp", zap.String("path", path))
		return nil, false
	}
	ts, err := core.ParseTimestamp(snap.Timestamp)
	if err != nil {
		b.logger.Warn("cache timestamp unparseable", zap.String("path", path), zap.Error(err))
		return nil, false
	}

	if age := AgeInDays(b.now(), ts); age >= expiryDays {
		b.logger.Debug("cache expired", zap.String("path", path), zap.Int("age_days", age), zap.Int("expiry_days", expiryDays))
		return nil, false
	}
	if len(snap.Messages) == 0 {
		b.logger.Warn("cache file has no messages", zap.String("path", path))
		return nil, false
	}
	msgs := make([]forum.Message, 0, len(snap.Messages))
	for i, m := range snap.Messages {
		valid, err := forum.NewMessage(m.Date, m.Content)
		if err != nil {
			b.logger.Warn("cache file holds an invalid message", zap.String("path", path), zap.Int("index", i), zap.Error(err))
			return nil, false
		}
		msgs = append(msgs, valid)
	}
	snap.Messages = msgs

	b.logger.Debug("cache hit", zap.String("path", path), zap.Int("messages", len(snap.Messages)))
	return snap.Messages, true
}

// Save persists messages atomically: the snapshot is written to a unique
// temp file in the same directory and renamed over the final path.
func (b *FilesystemBackend) Save(key, canonicalURL string, messages []forum.Message) error {
	if len(messages) == 0 {
		return ErrEmptySnapshot
	}

	snap := Snapshot{
		URL:       canonicalURL,
		Timestamp: b.now().Format(time.RFC3339Nano),
		Messages:  messages,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	b.writeLock.Lock()
	defer b.writeLock.Unlock()

	if err := os.MkdirAll(b.root, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	path := b.Path(key)
	tmpPath := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to place cache file: %w", err)
	}

	b.logger.Debug("cache written", zap.String("path", path), zap.Int("messages", len(messages)))
	return nil
}

// Clear removes every file in the cache directory.
func (b *FilesystemBackend) Clear() (int, error) {
	return ClearAll(b.root)
}

// ClearAll deletes every regular file in dir, keeping the directory itself.
// A missing directory is not an error. Failures on individual files do not
// stop the sweep; they are joined into the returned error.
func ClearAll(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list cache dir: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// AgeInDays returns the whole days elapsed from ts to now, rounded down.
func AgeInDays(now, ts time.Time) int {
	return int(math.Floor(now.Sub(ts).Hours() / 24))
}
