// Package forum fetches forum thread pages and extracts their posts.
//
// A thread is addressed by its canonical first-page URL. Page 1 is fetched
// first because its navigation control decides how many pages exist; pages
// 2..N are then fetched by a bounded worker pool and merged back in page
// order. Network and markup failures degrade to empty pages instead of
// aborting the scrape, except on page 1.
package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/colthorp/threadsum-go/internal/core"
)

// Message is one forum post.
type Message struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

// ErrEmptyContent is returned by NewMessage when the body is blank.
var ErrEmptyContent = errors.New("message content is empty")

// NewMessage validates and builds a Message. A blank date becomes core.UnknownDate.
func NewMessage(date, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyContent
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = core.UnknownDate
	}
	return Message{Date: date, Content: content}, nil
}

// Page is one fetched page of a thread. Number is 1-based.
type Page struct {
	Number   int
	URL      string
	Messages []Message
}

// HTTPError is returned when the forum answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("forum error (HTTP %d): %s", e.StatusCode, e.URL)
}

// Transport fetches the raw markup of one page.
type Transport interface {
	Get(ctx context.Context, pageURL string) ([]byte, error)
}
