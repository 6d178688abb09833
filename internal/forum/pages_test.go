package forum

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threadURL = "https://forum.example/threads/abc.123/"

// seedThread serves a thread whose page n holds posts "p<n>-1" and "p<n>-2".
func seedThread(transport *MockTransport, total int) {
	for n := 1; n <= total; n++ {
		transport.Serve(PageURL(threadURL, n), ThreadPage(total,
			[2]string{fmt.Sprintf("2024-01-%02dT10:00:00Z", n), fmt.Sprintf("p%d-1", n)},
			[2]string{fmt.Sprintf("2024-01-%02dT11:00:00Z", n), fmt.Sprintf("p%d-2", n)},
		))
	}
}

func contents(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		pending, limit, want int
	}{
		{1, 10, 1},
		{4, 10, 4},
		{10, 10, 10},
		{49, 10, 10},
	}
	for _, tt := range tests {
		if got := WorkerCount(tt.pending, tt.limit); got != tt.want {
			t.Errorf("WorkerCount(%d, %d) = %d, want %d", tt.pending, tt.limit, got, tt.want)
		}
	}
}

func TestFetchPagesSinglePage(t *testing.T) {
	transport := NewMockTransport()
	client := NewClient(transport, 0, nil)

	results, failures := client.FetchPages(context.Background(), threadURL, 1)
	assert.Empty(t, results)
	assert.Empty(t, failures)
	assert.Zero(t, transport.RequestsMade())
}

func TestFetchPagesOrderIndependentOfCompletion(t *testing.T) {
	transport := NewMockTransport()
	seedThread(transport, 5)
	// Earlier pages finish last.
	transport.Delay(PageURL(threadURL, 2), 60*time.Millisecond)
	transport.Delay(PageURL(threadURL, 3), 40*time.Millisecond)
	transport.Delay(PageURL(threadURL, 4), 20*time.Millisecond)

	client := NewClient(transport, 0, nil)
	results, failures := client.FetchPages(context.Background(), threadURL, 5)
	require.Empty(t, failures)
	require.Len(t, results, 4)

	results[1] = nil
	got := contents(MergePages(results))
	want := []string{"p2-1", "p2-2", "p3-1", "p3-2", "p4-1", "p4-2", "p5-1", "p5-2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged order mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPagesFailedPageIsEmpty(t *testing.T) {
	transport := NewMockTransport()
	seedThread(transport, 5)
	transport.Fail(PageURL(threadURL, 3), errors.New("connection reset"))

	client := NewClient(transport, 0, nil)
	results, failures := client.FetchPages(context.Background(), threadURL, 5)

	require.Len(t, results, 4)
	assert.NotNil(t, results[3])
	assert.Empty(t, results[3])
	require.Len(t, failures, 1)
	assert.Equal(t, 3, failures[0].Number)
	assert.Equal(t, PageURL(threadURL, 3), failures[0].URL)
	assert.EqualError(t, failures[0].Err, "connection reset")

	for _, n := range []int{2, 4, 5} {
		assert.Len(t, results[n], 2, "page %d", n)
	}
}

func TestFetchPagesBoundedPool(t *testing.T) {
	transport := NewMockTransport()
	seedThread(transport, 30)
	for n := 2; n <= 30; n++ {
		transport.Delay(PageURL(threadURL, n), 10*time.Millisecond)
	}

	client := NewClient(transport, 4, nil)
	results, failures := client.FetchPages(context.Background(), threadURL, 30)

	assert.Empty(t, failures)
	assert.Len(t, results, 29)
	assert.LessOrEqual(t, transport.PeakConcurrency(), 4)
	assert.Equal(t, 29, transport.RequestsMade())
}

func TestMergePages(t *testing.T) {
	pages := map[int][]Message{
		10: {{Date: "d", Content: "ten"}},
		2:  {{Date: "d", Content: "two"}},
		1:  {{Date: "d", Content: "one-a"}, {Date: "d", Content: "one-b"}},
		3:  {},
	}
	got := contents(MergePages(pages))
	want := []string{"one-a", "one-b", "two", "ten"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergePages mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, MergePages(nil))
}
