package forum

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/colthorp/threadsum-go/internal/core"
	"go.uber.org/zap"
)

// maxPageBytes caps how much of a single page is read.
const maxPageBytes = 8 << 20

// HTTPTransport performs plain GET requests with a browser-like user agent.
// It never retries.
type HTTPTransport struct {
	userAgent  string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport. Empty userAgent and zero timeout use the defaults.
func NewHTTPTransport(userAgent string, timeout time.Duration) *HTTPTransport {
	if userAgent == "" {
		userAgent = core.UserAgent
	}
	if timeout <= 0 {
		timeout = core.RequestTimeout
	}
	return &HTTPTransport{
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get fetches pageURL and returns the body. Non-2xx statuses yield *HTTPError.
func (t *HTTPTransport) Get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// CloseIdleConnections releases pooled keep-alive connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.httpClient.CloseIdleConnections()
}

// Client fetches and parses thread pages.
type Client struct {
	transport  Transport
	maxWorkers int
	logger     *zap.Logger
}

// NewClient creates a forum client. A nil transport uses NewHTTPTransport
// defaults, maxWorkers <= 0 uses core.MaxPageWorkers and a nil logger discards output.
func NewClient(transport Transport, maxWorkers int, logger *zap.Logger) *Client {
	if transport == nil {
		transport = NewHTTPTransport("", 0)
	}
	if maxWorkers <= 0 {
		maxWorkers = core.MaxPageWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		transport:  transport,
		maxWorkers: maxWorkers,
		logger:     logger.Named("forum"),
	}
}

// FetchDocument fetches and parses one page.
func (c *Client) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	c.logger.Debug("GET", zap.String("url", pageURL))
	body, err := c.transport.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// FetchPage fetches one page and extracts its posts. On error the returned
// list is empty, never nil.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]Message, error) {
	doc, err := c.FetchDocument(ctx, pageURL)
	if err != nil {
		return []Message{}, err
	}
	msgs := ExtractMessages(doc.Selection)
	c.logger.Debug("page parsed", zap.String("url", pageURL), zap.Int("messages", len(msgs)))
	return msgs, nil
}

// FetchFirstPage fetches the canonical first page and resolves the page count from it.
func (c *Client) FetchFirstPage(ctx context.Context, canonicalURL string) (Page, int, error) {
	doc, err := c.FetchDocument(ctx, canonicalURL)
	if err != nil {
		return Page{}, 0, err
	}
	page := Page{
		Number:   1,
		URL:      canonicalURL,
		Messages: ExtractMessages(doc.Selection),
	}
	total := PageCount(doc.Selection)
	c.logger.Debug("first page parsed",
		zap.String("url", canonicalURL),
		zap.Int("messages", len(page.Messages)),
		zap.Int("total_pages", total))
	return page, total, nil
}
