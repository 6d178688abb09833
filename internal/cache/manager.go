package cache

import (
	"context"
	"fmt"

	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/colthorp/threadsum-go/internal/forum"
	"go.uber.org/zap"
)

// Options controls one thread assembly.
type Options struct {
	UseCache   bool
	ExpiryDays int
	Quiet      bool
}

// Result describes how a thread was assembled.
type Result struct {
	CanonicalURL string
	Messages     []forum.Message
	FromCache    bool
	TotalPages   int
	FailedPages  []forum.PageFailure
	// CacheErr is set when the fresh scrape could not be written to the cache.
	CacheErr error
}

// Manager assembles complete threads, consulting the cache when permitted.
//
// Flow: canonicalize the URL, try the cache, fetch page 1 synchronously,
// resolve the page count from it, fetch pages 2..N through the worker pool,
// merge in page order, and write the result back when it is non-empty.
// Page 1 failing aborts the scrape with an empty result; any other failure
// only leaves that page empty, and such a partial thread is returned but not
// cached.
type Manager struct {
	client  *forum.Client
	backend Backend
	logger  *zap.Logger
}

// NewManager creates a new cache manager with the given forum client and backend.
// If backend is nil, uses the default FilesystemBackend.
// If client is nil, uses a forum client over plain HTTP.
func NewManager(client *forum.Client, backend Backend, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backend == nil {
		backend = NewFilesystemBackend("", logger)
	}
	if client == nil {
		client = forum.NewClient(nil, 0, logger)
	}
	return &Manager{
		client:  client,
		backend: backend,
		logger:  logger.Named("assembler"),
	}
}

// Messages returns every post of the thread at rawURL, oldest page first.
// It never fails; on a first-page failure the list is empty.
func (m *Manager) Messages(ctx context.Context, rawURL string, opts Options) []forum.Message {
	return m.Fetch(ctx, rawURL, opts).Messages
}

// Fetch assembles the thread at rawURL and reports where the messages came from.
func (m *Manager) Fetch(ctx context.Context, rawURL string, opts Options) Result {
	canonical := forum.CanonicalURL(rawURL)
	if canonical != rawURL {
		m.logger.Info("normalized thread url", zap.String("from", rawURL), zap.String("to", canonical))
	}
	res := Result{CanonicalURL: canonical, Messages: []forum.Message{}}
	key := KeyFor(canonical)

	if opts.UseCache {
		if msgs, ok := m.backend.Load(key, opts.ExpiryDays); ok {
			core.ProgressPrint(fmt.Sprintf("Cache hit: loaded %d messages from %s", len(msgs), m.backend.Path(key)), opts.Quiet)
			res.Messages = msgs
			res.FromCache = true
			return res
		}
	}

	core.ProgressPrint(fmt.Sprintf("Fetching initial page to determine pagination: %s", canonical), opts.Quiet)
	first, total, err := m.client.FetchFirstPage(ctx, canonical)
	if err != nil {
		m.logger.Error("initial page fetch failed", zap.String("url", canonical), zap.Error(err))
		core.Warn(fmt.Sprintf("Error fetching initial page %s: %v", canonical, err))
		return res
	}
	res.TotalPages = total
	core.ProgressPrint(fmt.Sprintf("Total pages identified: %d", total), opts.Quiet)

	pages := map[int][]forum.Message{1: first.Messages}
	if total > 1 {
		rest, failures := m.client.FetchPages(ctx, canonical, total)
		for n, msgs := range rest {
			pages[n] = msgs
		}
		res.FailedPages = failures
		for _, f := range failures {
			core.Warn(fmt.Sprintf("Error fetching page %d (%s): %v", f.Number, f.URL, f.Err))
		}
	}
	res.Messages = forum.MergePages(pages)

	switch {
	case !opts.UseCache || len(res.Messages) == 0:
	case len(res.FailedPages) > 0:
		m.logger.Info("partial scrape not cached", zap.Int("failed_pages", len(res.FailedPages)))
	default:
		if err := m.backend.Save(key, canonical, res.Messages); err != nil {
			m.logger.Warn("cache write failed", zap.String("path", m.backend.Path(key)), zap.Error(err))
			core.Warn(fmt.Sprintf("Error saving cache to %s: %v", m.backend.Path(key), err))
			res.CacheErr = err
		} else {
			core.ProgressPrint(fmt.Sprintf("Messages cached to %s", m.backend.Path(key)), opts.Quiet)
		}
	}
	return res
}

// Clear removes every cached thread.
func (m *Manager) Clear() (int, error) {
	return m.backend.Clear()
}
