// Package core provides shared constants and helpers for the threadsum CLI.
package core

import (
	"path/filepath"
	"time"
)

// Forum scraping
const (
	// UserAgent is sent on every page request; some forums reject default client signatures.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// MaxPageWorkers caps the number of pages fetched in parallel.
	MaxPageWorkers = 10
	// MaxThreadPages bounds the page count read from pagination links.
	MaxThreadPages = 10000

	// RequestTimeout bounds a single page GET.
	RequestTimeout = 30 * time.Second

	// UnknownDate is used when a post carries no timestamp element.
	UnknownDate = "Unknown date"
)

// Cache defaults
const (
	DefaultCacheExpiryDays = 7
	CacheFileExt           = ".json"
)

// LLM defaults
const (
	APIKeyEnvVar = "GEMINI_API_KEY"
	DefaultModel = "gemini-2.0-flash"
	EnvPrefix    = "THREADSUM"
)

// Date formats
const (
	DisplayDateFmt = "2006-01-02 15:04 MST-0700"
	DayFmt         = "2006-01-02"
)

// DefaultCacheDir returns the default cache directory, relative to the working directory.
func DefaultCacheDir() string {
	return filepath.Join(".cache", "threadsum")
}

// Version is the current CLI version.
const Version = "0.3.0"
