package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func testFetcher() *PageFetcher {
	return &PageFetcher{
		client:  resty.New().SetTimeout(5 * time.Second),
		retries: fetchRetries,
		backoff: time.Millisecond,
	}
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>page</html>"))
	}))
	defer server.Close()

	body, err := testFetcher().Fetch(server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if body != "<html>page</html>" {
		t.Errorf("Fetch() body = %q", body)
	}
}

func TestFetchHTTPErrorNoRetry(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testFetcher().Fetch(server.URL)
	if err == nil {
		t.Fatal("Fetch() should fail on HTTP 404")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Fetch() error = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
	if requests != 1 {
		t.Errorf("404 triggered %d requests, want 1 (no retry)", requests)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	body, err := testFetcher().Fetch(server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if body != "recovered" {
		t.Errorf("Fetch() body = %q, want recovered", body)
	}
	if requests != 3 {
		t.Errorf("performed %d requests, want 3", requests)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testFetcher().Fetch(server.URL)
	if err == nil {
		t.Fatal("Fetch() should fail after exhausting retries")
	}
	if requests != fetchRetries {
		t.Errorf("performed %d requests, want %d", requests, fetchRetries)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"rate limited", &HTTPError{StatusCode: 429}, true},
		{"server error", &HTTPError{StatusCode: 500}, true},
		{"bad gateway", &HTTPError{StatusCode: 502}, true},
		{"not found", &HTTPError{StatusCode: 404}, false},
		{"forbidden", &HTTPError{StatusCode: 403}, false},
		{"network error", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.expected {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestNewPageFetcherHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept-Language")
	}))
	defer server.Close()

	if _, err := NewPageFetcher().Fetch(server.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotUA == "" || gotUA == "Go-http-client/1.1" {
		t.Errorf("User-Agent = %q, want a browser-like value", gotUA)
	}
	if gotAccept != "en-US,en;q=0.9" {
		t.Errorf("Accept-Language = %q", gotAccept)
	}
}
