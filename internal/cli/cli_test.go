package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/colthorp/threadsum-go/internal/cache"
	"github.com/colthorp/threadsum-go/internal/config"
	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/colthorp/threadsum-go/internal/forum"
	"github.com/colthorp/threadsum-go/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const threadURL = "https://forum.example/threads/card-review.42/"

func init() {
	core.Stderr = io.Discard
}

type fakeSummarizer struct {
	mu        sync.Mutex
	summary   string
	answer    string
	err       error
	keywords  []string
	questions []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ []forum.Message, keywords []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywords = keywords
	return f.summary, f.err
}

func (f *fakeSummarizer) CountTokens(_ context.Context, msgs []forum.Message) (int, error) {
	return 10 * len(msgs), nil
}

func (f *fakeSummarizer) Answer(_ context.Context, _ []forum.Message, question string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	return f.answer, f.err
}

func (f *fakeSummarizer) ListModels(context.Context) ([]llm.ModelInfo, error) {
	return []llm.ModelInfo{{Name: "models/gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash"}}, nil
}

type harness struct {
	app        *app
	transport  *forum.MockTransport
	backend    *cache.MemoryBackend
	summarizer *fakeSummarizer
	out        *bytes.Buffer
	cacheDir   string
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()
	h := &harness{
		transport:  forum.NewMockTransport(),
		backend:    cache.NewMemoryBackend(),
		summarizer: &fakeSummarizer{summary: "Summarized", answer: "Answered"},
		out:        &bytes.Buffer{},
		cacheDir:   t.TempDir(),
	}
	h.app = &app{
		stdin:  strings.NewReader(stdin),
		stdout: h.out,
		loadConfig: func() (config.Config, error) {
			cfg := config.Default()
			cfg.CacheDir = h.cacheDir
			cfg.APIKey = "AIzaSyTEST0123456789XYZ"
			cfg.Quiet = true
			return cfg, nil
		},
		transport: h.transport,
		backend:   h.backend,
		newSummarizer: func(context.Context, config.Config, *zap.Logger) (Summarizer, error) {
			return h.summarizer, nil
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := newRootCmd(h.app)
	cmd.SetArgs(args)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

// seed serves a thread of total pages with one post per page.
func (h *harness) seed(total int) {
	for n := 1; n <= total; n++ {
		h.transport.Serve(forum.PageURL(threadURL, n), forum.ThreadPage(total,
			[2]string{fmt.Sprintf("2024-03-%02dT09:00:00Z", n), fmt.Sprintf("post %d", n)},
		))
	}
}

func TestRunRequiresThreadURL(t *testing.T) {
	h := newHarness(t, "")
	err := h.run()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingThreadURL)
	assert.Equal(t, "thread_url is required if --clear-cache is not specified", err.Error())
}

func TestRunClearCache(t *testing.T) {
	h := newHarness(t, "")
	for i := 0; i < 3; i++ {
		path := filepath.Join(h.cacheDir, fmt.Sprintf("%d.json", i))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}

	require.NoError(t, h.run("--clear-cache"))

	entries, err := os.ReadDir(h.cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, h.transport.RequestsMade())
}

func TestRunClearCacheFlagDir(t *testing.T) {
	h := newHarness(t, "")
	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "a.json"), []byte("{}"), 0o644))

	require.NoError(t, h.run("--clear-cache", "--cache-dir", other))

	entries, err := os.ReadDir(other)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunSummarizesToConsole(t *testing.T) {
	h := newHarness(t, "")
	h.seed(2)

	require.NoError(t, h.run(threadURL+"page-2", "--no-qa", "--keywords", "fees, lounge"))

	assert.Contains(t, h.out.String(), "Summarized")
	assert.Equal(t, []string{"fees", "lounge"}, h.summarizer.keywords)
	assert.Equal(t, []string{threadURL}, h.backend.URLs())
}

func TestRunNoCacheSkipsBackend(t *testing.T) {
	h := newHarness(t, "")
	h.seed(1)

	require.NoError(t, h.run(threadURL, "--no-qa", "--no-cache"))
	assert.Zero(t, h.backend.Saves())
}

func TestRunNoMessagesFails(t *testing.T) {
	h := newHarness(t, "")
	// Nothing served: the first page is a 404.
	err := h.run(threadURL, "--no-qa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no messages found")
}

func TestRunSummarizerError(t *testing.T) {
	h := newHarness(t, "")
	h.seed(1)
	h.summarizer.err = errors.New("quota exceeded")

	err := h.run(threadURL, "--no-qa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRunInvalidOutputFormat(t *testing.T) {
	h := newHarness(t, "")
	err := h.run(threadURL, "--output-format", "html")
	require.Error(t, err)
	assert.Zero(t, h.transport.RequestsMade())
}

func TestRunWritesMarkdownFile(t *testing.T) {
	h := newHarness(t, "")
	h.seed(1)
	path := filepath.Join(t.TempDir(), "out", "summary.md")

	require.NoError(t, h.run(threadURL, "--no-qa", "-o", path, "--output-format", "md", "--keywords", "fees"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Summary of: "+threadURL+"\n\n**Keywords focused:** fees\n\nSummarized", string(data))
	assert.NotContains(t, h.out.String(), "Summarized")
}

func TestRunMarkdownHeaderUsesGivenURL(t *testing.T) {
	h := newHarness(t, "")
	h.seed(2)
	path := filepath.Join(t.TempDir(), "summary.md")
	given := threadURL + "page-2#post-9"

	require.NoError(t, h.run(given, "--no-qa", "-o", path, "--output-format", "md"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Summary of: "+given+"\n\n"))
}

func TestRunOutputFileFailureFallsBackToConsole(t *testing.T) {
	h := newHarness(t, "")
	h.seed(1)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	require.NoError(t, h.run(threadURL, "--no-qa", "-o", filepath.Join(blocker, "summary.txt")))
	assert.Contains(t, h.out.String(), "Summarized")
}

func TestRunDebugPrintsDiagnostics(t *testing.T) {
	h := newHarness(t, "")
	h.seed(1)

	require.NoError(t, h.run(threadURL, "--no-qa", "--debug"))

	out := h.out.String()
	assert.Contains(t, out, "AIzaS...89XYZ")
	assert.Contains(t, out, "Estimated input tokens: 10")
	assert.Contains(t, out, "models/gemini-2.0-flash")
}

func TestRunQuestionSession(t *testing.T) {
	h := newHarness(t, "yes\nAre fees waived?\nquit\n")
	h.seed(1)

	require.NoError(t, h.run(threadURL))

	assert.Equal(t, []string{"Are fees waived?"}, h.summarizer.questions)
	assert.Contains(t, h.out.String(), "Answered")
}

func TestRunMissingAPIKey(t *testing.T) {
	h := newHarness(t, "")
	h.seed(1)
	h.app.newSummarizer = newGeminiSummarizer
	load := h.app.loadConfig
	h.app.loadConfig = func() (config.Config, error) {
		cfg, err := load()
		cfg.APIKey = ""
		return cfg, err
	}

	err := h.run(threadURL, "--no-qa")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.Zero(t, h.transport.RequestsMade())
}

func TestFetchCommandPrintsJSON(t *testing.T) {
	h := newHarness(t, "")
	h.seed(2)

	require.NoError(t, h.run("fetch", threadURL+"#post-1"))

	out := h.out.String()
	assert.Contains(t, out, `"content": "post 1"`)
	assert.Contains(t, out, `"content": "post 2"`)
	assert.Less(t, strings.Index(out, "post 1"), strings.Index(out, "post 2"))
}

func TestFetchCommandServedFromCache(t *testing.T) {
	h := newHarness(t, "")
	h.backend.Seed(threadURL, time.Now(), forum.Message{Date: "2024-01-01", Content: "cached post"})

	require.NoError(t, h.run("fetch", threadURL))

	assert.Contains(t, h.out.String(), "cached post")
	assert.Zero(t, h.transport.RequestsMade())
}
