package forum

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockTransport serves canned pages from memory for tests. It is safe for
// concurrent use by the page worker pool.
type MockTransport struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	delays   map[string]time.Duration
	requests []string
	inFlight int
	peak     int
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		pages:    make(map[string]string),
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
	}
}

// Serve registers markup for a URL.
func (t *MockTransport) Serve(pageURL, markup string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages[pageURL] = markup
}

// Fail makes requests for pageURL return err.
func (t *MockTransport) Fail(pageURL string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[pageURL] = err
}

// Delay makes requests for pageURL wait before answering.
func (t *MockTransport) Delay(pageURL string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delays[pageURL] = d
}

// Get returns the registered markup, the registered failure, or a 404 HTTPError.
func (t *MockTransport) Get(ctx context.Context, pageURL string) ([]byte, error) {
	t.mu.Lock()
	t.requests = append(t.requests, pageURL)
	t.inFlight++
	if t.inFlight > t.peak {
		t.peak = t.inFlight
	}
	delay := t.delays[pageURL]
	failure := t.failures[pageURL]
	markup, ok := t.pages[pageURL]
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inFlight--
		t.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	if !ok {
		return nil, &HTTPError{StatusCode: 404, URL: pageURL}
	}
	return []byte(markup), nil
}

// Requests returns the URLs requested so far, in call order.
func (t *MockTransport) Requests() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.requests))
	copy(out, t.requests)
	return out
}

// RequestsMade returns the number of requests made to this transport.
func (t *MockTransport) RequestsMade() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// PeakConcurrency returns the highest number of simultaneous requests observed.
func (t *MockTransport) PeakConcurrency() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

// ThreadPage renders minimal XenForo-style markup for one page of a thread.
// Each post is given as {date, body}; an empty date omits the time element.
// When totalPages > 1 a navigation control with page links 1..totalPages is added.
func ThreadPage(totalPages int, posts ...[2]string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for _, p := range posts {
		sb.WriteString(`<article class="message"><div class="message-inner">`)
		if p[0] != "" {
			fmt.Fprintf(&sb, `<time class="u-dt" datetime="%s">%s</time>`, p[0], p[0])
		}
		fmt.Fprintf(&sb, `<div class="message-content"><div class="bbWrapper">%s</div></div>`, p[1])
		sb.WriteString(`</div></article>`)
	}
	if totalPages > 1 {
		sb.WriteString(`<div class="pageNav"><ul class="pageNav-main">`)
		for i := 1; i <= totalPages; i++ {
			fmt.Fprintf(&sb, `<li class="pageNav-page"><a href="page-%d">%d</a></li>`, i, i)
		}
		sb.WriteString(`</ul></div>`)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}
