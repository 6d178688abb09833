// Package cli implements the threadsum command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/colthorp/threadsum-go/internal/cache"
	"github.com/colthorp/threadsum-go/internal/config"
	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/colthorp/threadsum-go/internal/forum"
	"github.com/colthorp/threadsum-go/internal/llm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Summarizer is the language-model side of a run.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []forum.Message, keywords []string) (string, error)
	CountTokens(ctx context.Context, msgs []forum.Message) (int, error)
	Answer(ctx context.Context, msgs []forum.Message, question string) (string, error)
	ListModels(ctx context.Context) ([]llm.ModelInfo, error)
}

// app carries the collaborators a command needs. Tests replace the
// transport, backend and summarizer factory.
type app struct {
	stdin  io.Reader
	stdout io.Writer

	loadConfig    func() (config.Config, error)
	transport     forum.Transport
	backend       cache.Backend
	newSummarizer func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Summarizer, error)

	cfg    config.Config
	logger *zap.Logger
}

// Global flags
type globalFlags struct {
	verbose bool
	quiet   bool
}

// Run flags for the summarize command
type runFlags struct {
	outputFile   string
	outputFormat string
	keywords     string
	cacheDir     string
	cacheExpiry  int
	noCache      bool
	clearCache   bool
	debug        bool
	noQA         bool
}

func newApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		loadConfig: func() (config.Config, error) {
			return config.Load(config.Options{})
		},
		newSummarizer: newGeminiSummarizer,
	}
}

func newGeminiSummarizer(ctx context.Context, cfg config.Config, logger *zap.Logger) (Summarizer, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	model, err := llm.NewGeminiModel(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(model, logger), nil
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	var gf globalFlags
	var rf runFlags

	rootCmd := &cobra.Command{
		Use:   "threadsum [thread_url]",
		Short: "threadsum – scrape, summarize and question forum threads",
		Long: `Scrapes every page of a XenForo forum thread, caches the posts locally,
summarizes them with Gemini and optionally answers follow-up questions.`,
		Version:       core.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, gf, rf)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSummarize(cmd, args, rf)
		},
	}
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false, "Verbose debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&gf.quiet, "quiet", false, "Suppress progress messages")
	rootCmd.PersistentFlags().StringVar(&rf.cacheDir, "cache-dir", "", fmt.Sprintf("Directory for cached threads (default: %s)", core.DefaultCacheDir()))
	rootCmd.PersistentFlags().IntVar(&rf.cacheExpiry, "cache-expiry", core.DefaultCacheExpiryDays, "Cache expiry in days")
	rootCmd.PersistentFlags().BoolVar(&rf.noCache, "no-cache", false, "Disable the cache for this run")

	rootCmd.Flags().StringVarP(&rf.outputFile, "output-file", "o", "", "Path to save the summary")
	rootCmd.Flags().StringVar(&rf.outputFormat, "output-format", "txt", "Summary file format (txt or md)")
	rootCmd.Flags().StringVar(&rf.keywords, "keywords", "", "Comma-separated keywords to focus the summary on")
	rootCmd.Flags().BoolVar(&rf.clearCache, "clear-cache", false, "Clear the cache directory and exit")
	rootCmd.Flags().BoolVar(&rf.debug, "debug", false, "Show token estimate, available models and debug logs")
	rootCmd.Flags().BoolVar(&rf.noQA, "no-qa", false, "Skip the interactive question prompt")

	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newMCPCmd(a))
	return rootCmd
}

// setup resolves configuration and builds the logger. Flags win over
// every other source.
func (a *app) setup(cmd *cobra.Command, gf globalFlags, rf runFlags) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = gf.verbose
	}
	if flags.Changed("quiet") {
		cfg.Quiet = gf.quiet
	}
	if flags.Changed("cache-dir") && rf.cacheDir != "" {
		cfg.CacheDir = rf.cacheDir
	}
	if flags.Changed("cache-expiry") {
		cfg.CacheExpiryDays = rf.cacheExpiry
	}
	if rf.noCache {
		cfg.UseCache = false
	}
	if rf.debug {
		cfg.Verbose = true
	}

	logger, err := core.NewLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	a.logger.Debug("configuration resolved",
		zap.String("cache_dir", cfg.CacheDir),
		zap.Int("cache_expiry", cfg.CacheExpiryDays),
		zap.Bool("use_cache", cfg.UseCache),
		zap.String("model", cfg.Model),
		zap.Int("max_workers", cfg.MaxWorkers))
	return nil
}

// manager builds the thread assembler from the resolved configuration.
func (a *app) manager() *cache.Manager {
	transport := a.transport
	if transport == nil {
		transport = forum.NewHTTPTransport(a.cfg.UserAgent, a.cfg.RequestTimeout)
	}
	backend := a.backend
	if backend == nil {
		backend = cache.NewFilesystemBackend(a.cfg.CacheDir, a.logger)
	}
	client := forum.NewClient(transport, a.cfg.MaxWorkers, a.logger)
	return cache.NewManager(client, backend, a.logger)
}

func (a *app) cacheOptions() cache.Options {
	return cache.Options{
		UseCache:   a.cfg.UseCache,
		ExpiryDays: a.cfg.CacheExpiryDays,
		Quiet:      a.cfg.Quiet,
	}
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	rootCmd := newRootCmd(newApp())
	if err := rootCmd.Execute(); err != nil {
		core.Error(err.Error())
		os.Exit(1)
	}
}
