package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

const fetchRetries = 3

// PageFetcher downloads listing pages with browser-like headers.
type PageFetcher struct {
	client  *resty.Client
	retries int
	backoff time.Duration
}

// NewPageFetcher creates a fetcher with the fixed request headers and timeout
// the listing site expects.
func NewPageFetcher() *PageFetcher {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0 Safari/537.36")
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")
	client.SetHeader("Cache-Control", "no-cache")

	return &PageFetcher{
		client:  client,
		retries: fetchRetries,
		backoff: time.Second,
	}
}

// Fetch downloads one page, retrying transient failures with exponential
// backoff. Non-transient HTTP errors fail immediately.
func (f *PageFetcher) Fetch(url string) (string, error) {
	var lastErr error
	for i := 0; i < f.retries; i++ {
		body, err := f.fetchOnce(url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isTransient(err) {
			return "", err
		}
		if i < f.retries-1 {
			time.Sleep(f.backoff * time.Duration(1<<uint(i)))
		}
	}
	return "", fmt.Errorf("exceeded max retries after %d attempts: %w", f.retries, lastErr)
}

func (f *PageFetcher) fetchOnce(url string) (string, error) {
	resp, err := f.client.R().Get(url)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}

	debugLog("fetched %s: status=%d bytes=%d", url, resp.StatusCode(), len(resp.Body()))

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", &HTTPError{StatusCode: resp.StatusCode(), URL: url}
	}
	return resp.String(), nil
}

// isTransient reports whether a fetch failure is worth retrying: network
// errors, rate limiting, and server-side errors. Other HTTP statuses are
// permanent for the duration of a pass.
func isTransient(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return true
}
