package forum

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportSendsUserAgent(t *testing.T) {
	uaCh := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uaCh <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ThreadPage(1, [2]string{"2024-01-01T00:00:00Z", "hello"})))
	}))
	defer server.Close()

	transport := NewHTTPTransport("", 0)
	defer transport.CloseIdleConnections()

	body, err := transport.Get(context.Background(), server.URL+"/threads/x.1/")
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello")
	assert.Equal(t, core.UserAgent, <-uaCh)
}

func TestHTTPTransportStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer server.Close()

	transport := NewHTTPTransport("custom-agent/1.0", 0)
	defer transport.CloseIdleConnections()

	_, err := transport.Get(context.Background(), server.URL)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
}

func TestClientFetchFirstPage(t *testing.T) {
	transport := NewMockTransport()
	seedThread(transport, 3)
	client := NewClient(transport, 0, nil)

	page, total, err := client.FetchFirstPage(context.Background(), threadURL)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, []string{"p1-1", "p1-2"}, contents(page.Messages))
	assert.Equal(t, "2024-01-01T10:00:00Z", page.Messages[0].Date)
}

func TestClientFetchPageError(t *testing.T) {
	transport := NewMockTransport()
	client := NewClient(transport, 0, nil)

	msgs, err := client.FetchPage(context.Background(), threadURL)
	assert.Error(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestClientEndToEndOverHTTP(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	base := server.URL + "/threads/abc.123/"
	mux.HandleFunc("/threads/abc.123/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ThreadPage(2, [2]string{"2024-01-01T00:00:00Z", "first"})))
	})
	mux.HandleFunc("/threads/abc.123/page-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ThreadPage(2, [2]string{"2024-01-02T00:00:00Z", "second"})))
	})

	transport := NewHTTPTransport("", 0)
	defer transport.CloseIdleConnections()
	client := NewClient(transport, 0, nil)

	page, total, err := client.FetchFirstPage(context.Background(), base)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	rest, failures := client.FetchPages(context.Background(), base, total)
	require.Empty(t, failures)
	rest[1] = page.Messages
	assert.Equal(t, []string{"first", "second"}, contents(MergePages(rest)))
}
