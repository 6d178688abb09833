package core

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
)

// Stderr is where console helpers write. Tests swap it out.
var Stderr io.Writer = os.Stderr

// ProgressPrint writes msg to stderr unless quiet is true.
func ProgressPrint(msg string, quiet bool) {
	if !quiet {
		fmt.Fprintln(Stderr, progressStyle.Render(msg))
	}
}

// Success writes a green status line unless quiet is true.
func Success(msg string, quiet bool) {
	if !quiet {
		fmt.Fprintln(Stderr, successStyle.Render(msg))
	}
}

// Warn always writes a yellow warning line.
func Warn(msg string) {
	fmt.Fprintln(Stderr, warnStyle.Render(msg))
}

// Error always writes a red error line.
func Error(msg string) {
	fmt.Fprintln(Stderr, errorStyle.Render(msg))
}

// Heading renders a section title for stdout.
func Heading(title string) string {
	return headingStyle.Render(title)
}

// NewLogger builds the process logger. Debug level when verbose, warnings otherwise.
func NewLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// StandardizeDate renders an ISO-8601 timestamp as DisplayDateFmt.
// Values that do not parse are returned unchanged.
func StandardizeDate(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.Format(DisplayDateFmt)
}

// ParseTimestamp accepts RFC 3339 timestamps and the zone-less ISO form
// (interpreted in local time).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05-0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp '%s' (expected ISO-8601)", s)
}

// FormatDate formats a time.Time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DayFmt)
}

// SplitKeywords turns a comma-separated flag value into trimmed, non-empty keywords.
func SplitKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// MaskKey shortens an API key for debug output.
func MaskKey(key string) string {
	if len(key) <= 10 {
		return key
	}
	return key[:5] + "..." + key[len(key)-5:]
}
