// Package output writes summaries to files and renders them on the console.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/colthorp/threadsum-go/internal/forum"
)

// Supported summary file formats.
const (
	FormatText     = "txt"
	FormatMarkdown = "md"
)

// ValidFormat reports whether f names a supported summary file format.
func ValidFormat(f string) bool {
	return f == FormatText || f == FormatMarkdown
}

// FormatSummary renders the file body for a summary.
func FormatSummary(format, threadURL string, keywords []string, summary string) string {
	if format != FormatMarkdown {
		return summary
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Summary of: %s\n\n", threadURL)
	if len(keywords) > 0 {
		fmt.Fprintf(&sb, "**Keywords focused:** %s\n\n", strings.Join(keywords, ", "))
	}
	sb.WriteString(summary)
	return sb.String()
}

// WriteSummary writes a summary to path, creating parent directories.
func WriteSummary(path, format, threadURL string, keywords []string, summary string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	body := FormatSummary(format, threadURL, keywords, summary)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write summary to %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown prints md to w, styled for the terminal when possible.
func RenderMarkdown(w io.Writer, md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		if out, rerr := r.Render(md); rerr == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprintln(w, md)
}

// PrintMessagesJSON writes messages as an indented JSON array.
func PrintMessagesJSON(w io.Writer, msgs []forum.Message) error {
	if msgs == nil {
		msgs = []forum.Message{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
