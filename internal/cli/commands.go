package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/colthorp/threadsum-go/internal/cache"
	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/colthorp/threadsum-go/internal/forum"
	"github.com/colthorp/threadsum-go/internal/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrMissingThreadURL is returned when no thread is given and the cache is not being cleared.
var ErrMissingThreadURL = errors.New("thread_url is required if --clear-cache is not specified")

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [thread_url]",
		Short: "Scrape a thread and print its messages as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.fetchThread(cmd, args[0])
			if len(res.Messages) == 0 {
				return fmt.Errorf("no messages found for %s", res.CanonicalURL)
			}
			return output.PrintMessagesJSON(cmd.OutOrStdout(), res.Messages)
		},
	}
}

// fetchThread assembles a thread, announcing URL normalization first.
func (a *app) fetchThread(cmd *cobra.Command, rawURL string) cache.Result {
	rawURL = strings.TrimSpace(rawURL)
	if canonical := forum.CanonicalURL(rawURL); canonical != rawURL {
		core.ProgressPrint(fmt.Sprintf("Normalized URL to: %s", canonical), a.cfg.Quiet)
	}
	return a.manager().Fetch(cmd.Context(), rawURL, a.cacheOptions())
}

func (a *app) clearCache() error {
	removed, err := cache.ClearAll(a.cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("error clearing cache directory %s: %w", a.cfg.CacheDir, err)
	}
	core.Success(fmt.Sprintf("Cache cleared: removed %d file(s) from %s", removed, a.cfg.CacheDir), a.cfg.Quiet)
	return nil
}

func (a *app) runSummarize(cmd *cobra.Command, args []string, rf runFlags) error {
	if rf.clearCache {
		return a.clearCache()
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return ErrMissingThreadURL
	}
	if !output.ValidFormat(rf.outputFormat) {
		return fmt.Errorf("invalid --output-format %q (expected txt or md)", rf.outputFormat)
	}

	ctx := cmd.Context()
	summarizer, err := a.newSummarizer(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}

	threadURL := strings.TrimSpace(args[0])
	res := a.fetchThread(cmd, threadURL)
	if len(res.Messages) == 0 {
		return fmt.Errorf("no messages found or extracted from %s", res.CanonicalURL)
	}
	if res.FromCache {
		core.Success(fmt.Sprintf("Loaded %d messages from cache", len(res.Messages)), a.cfg.Quiet)
	} else {
		core.Success(fmt.Sprintf("Scraped %d messages from %d page(s)", len(res.Messages), res.TotalPages), a.cfg.Quiet)
	}

	if rf.debug {
		a.printDebug(cmd, summarizer, res.Messages)
	}

	keywords := core.SplitKeywords(rf.keywords)
	core.ProgressPrint("Summarizing thread…", a.cfg.Quiet)
	summary, err := summarizer.Summarize(ctx, res.Messages, keywords)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printed := false
	if rf.outputFile != "" {
		if err := output.WriteSummary(rf.outputFile, rf.outputFormat, threadURL, keywords, summary); err != nil {
			a.logger.Warn("summary file write failed", zap.String("path", rf.outputFile), zap.Error(err))
			core.Warn(fmt.Sprintf("Error saving summary: %v. Printing to console instead.", err))
		} else {
			core.Success(fmt.Sprintf("Summary saved to %s", rf.outputFile), a.cfg.Quiet)
			printed = true
		}
	}
	if !printed {
		fmt.Fprintln(out, core.Heading("Summary"))
		output.RenderMarkdown(out, summary)
	}

	if rf.noQA {
		return nil
	}
	session := NewQASession(cmd.InOrStdin(), out, summarizer, res.Messages)
	return session.Run(ctx)
}

// printDebug shows the token estimate, the masked key and the models the key can use.
func (a *app) printDebug(cmd *cobra.Command, s Summarizer, msgs []forum.Message) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "API key: %s\n", core.MaskKey(a.cfg.APIKey))
	if n, err := s.CountTokens(ctx, msgs); err != nil {
		core.Warn(fmt.Sprintf("Token estimation failed: %v", err))
	} else {
		fmt.Fprintf(out, "Estimated input tokens: %d\n", n)
	}

	models, err := s.ListModels(ctx)
	if err != nil {
		core.Warn(fmt.Sprintf("Could not list models: %v", err))
		return
	}
	fmt.Fprintln(out, "Available models supporting generateContent:")
	for _, m := range models {
		fmt.Fprintf(out, "  - %s (%s)\n", m.Name, m.DisplayName)
	}
}
