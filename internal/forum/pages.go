package forum

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageFailure records a page that contributed no messages because its fetch failed.
type PageFailure struct {
	Number int
	URL    string
	Err    error
}

// WorkerCount returns the pool size for fetching pending pages: min(limit, pending).
func WorkerCount(pending, limit int) int {
	if pending < limit {
		return pending
	}
	return limit
}

// FetchPages fetches pages 2..total of the thread concurrently and returns
// their messages keyed by page number. Every page in the range has an entry;
// failed pages map to an empty list and are reported in the failure slice,
// sorted by page number. One page's failure never stops the others.
func (c *Client) FetchPages(ctx context.Context, canonicalURL string, total int) (map[int][]Message, []PageFailure) {
	results := make(map[int][]Message)
	if total < 2 {
		return results, nil
	}

	// Results are keyed by page number, so completion order never matters.
	var (
		mu       sync.Mutex
		failures []PageFailure
	)

	var g errgroup.Group
	g.SetLimit(WorkerCount(total-1, c.maxWorkers))
	for n := 2; n <= total; n++ {
		g.Go(func() error {
			pageURL := PageURL(canonicalURL, n)
			msgs, err := c.fetchPageSafe(ctx, pageURL)

			mu.Lock()
			defer mu.Unlock()
			results[n] = msgs
			if err != nil {
				c.logger.Warn("page fetch failed", zap.Int("page", n), zap.String("url", pageURL), zap.Error(err))
				failures = append(failures, PageFailure{Number: n, URL: pageURL, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Number < failures[j].Number })
	return results, failures
}

// fetchPageSafe runs FetchPage and turns a panic in parsing into an error.
func (c *Client) fetchPageSafe(ctx context.Context, pageURL string) (msgs []Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			msgs, err = []Message{}, fmt.Errorf("panic while fetching %s: %v", pageURL, r)
		}
	}()
	return c.FetchPage(ctx, pageURL)
}

// MergePages flattens page-keyed messages in ascending page-number order.
func MergePages(pages map[int][]Message) []Message {
	numbers := make([]int, 0, len(pages))
	total := 0
	for n, msgs := range pages {
		numbers = append(numbers, n)
		total += len(msgs)
	}
	sort.Ints(numbers)

	merged := make([]Message, 0, total)
	for _, n := range numbers {
		merged = append(merged, pages[n]...)
	}
	return merged
}
